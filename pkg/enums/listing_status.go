package enums

import "fmt"

// ListingStatus maps to the listing_status_enum enum in Postgres.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusWithdrawn ListingStatus = "withdrawn"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusExpired   ListingStatus = "expired"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusWithdrawn,
	ListingStatusSold,
	ListingStatusExpired,
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ListingStatus.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}

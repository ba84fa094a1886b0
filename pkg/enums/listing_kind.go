package enums

import "fmt"

// ListingKind maps to the listing_kind_enum enum in Postgres.
type ListingKind string

const (
	ListingKindSale     ListingKind = "sale"
	ListingKindAuction  ListingKind = "auction"
	ListingKindExchange ListingKind = "exchange"
	ListingKindGift     ListingKind = "gift"
)

var validListingKinds = []ListingKind{
	ListingKindSale,
	ListingKindAuction,
	ListingKindExchange,
	ListingKindGift,
}

// IsValid reports whether the value is a known ListingKind.
func (k ListingKind) IsValid() bool {
	for _, candidate := range validListingKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseListingKind converts raw input into a ListingKind.
func ParseListingKind(value string) (ListingKind, error) {
	for _, candidate := range validListingKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing kind %q", value)
}

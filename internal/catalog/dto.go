package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// CreateListingInput carries the fields a seller supplies for a new listing.
type CreateListingInput struct {
	SellerID uuid.UUID
	Title    string
	Category string
	Price    decimal.Decimal
	Kind     enums.ListingKind
	EndsAt   *time.Time
	Actor    *outbox.ActorRef
}

// SetStatusInput changes a listing's lifecycle status. ActorID must match the
// seller; system callers (cron) go through the repository directly.
type SetStatusInput struct {
	ListingID uuid.UUID
	ActorID   uuid.UUID
	Status    enums.ListingStatus
	Reason    string
	Actor     *outbox.ActorRef
}

// ListingFilters narrows listing queries.
type ListingFilters struct {
	SellerID *uuid.UUID
	Kind     *enums.ListingKind
	Status   *enums.ListingStatus
	Category *string
}

// ListingPage is one page of listings, newest first.
type ListingPage struct {
	Listings   []models.Listing
	NextCursor string
}

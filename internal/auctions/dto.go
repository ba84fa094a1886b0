package auctions

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// PlaceBidInput carries one bid attempt against an auction listing.
type PlaceBidInput struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Actor     *outbox.ActorRef
}

// AcceptInput closes an auction on its current highest bid.
type AcceptInput struct {
	ListingID      uuid.UUID
	SellerID       uuid.UUID
	DeliveryMethod enums.DeliveryMethod
	Actor          *outbox.ActorRef
}

package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// CreateOrderInput captures the agreement that turns a listing into an order.
type CreateOrderInput struct {
	ListingID       uuid.UUID
	BuyerID         uuid.UUID
	Quantity        int
	DeliveryMethod  enums.DeliveryMethod
	ShippingAddress *string
	Notes           *string
	// UnitPriceOverride replaces the listing price, used when an accepted
	// auction bid fixes the final amount.
	UnitPriceOverride *decimal.Decimal
	Actor             *outbox.ActorRef
}

// TransitionInput identifies an order move requested by one of the parties.
type TransitionInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Actor   *outbox.ActorRef
}

// SetTrackingInput assigns the carrier reference while the order is being
// prepared.
type SetTrackingInput struct {
	OrderID        uuid.UUID
	ActorID        uuid.UUID
	TrackingNumber string
	Actor          *outbox.ActorRef
}

// CancelInput carries an optional reason alongside the transition.
type CancelInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  string
	Actor   *outbox.ActorRef
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.OrderStatus
}

// OrderPage is one page of orders, newest first.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

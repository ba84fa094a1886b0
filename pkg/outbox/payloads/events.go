package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order entered the pipeline.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	ListingID      uuid.UUID            `json:"listing_id"`
	BuyerID        uuid.UUID            `json:"buyer_id"`
	SellerID       uuid.UUID            `json:"seller_id"`
	TotalPrice     string               `json:"total_price"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
}

// OrderStateChangedEvent is emitted on every forward transition of an order.
type OrderStateChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	BuyerID        uuid.UUID         `json:"buyer_id"`
	SellerID       uuid.UUID         `json:"seller_id"`
	FromStatus     enums.OrderStatus `json:"from_status"`
	ToStatus       enums.OrderStatus `json:"to_status"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
}

// OrderCancelledEvent is emitted when a pre-shipment order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Refunded    bool      `json:"refunded"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderRefundedEvent reports a completed refund with its ledger amounts.
type OrderRefundedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Amount     string    `json:"amount"`
	RefundedAt time.Time `json:"refunded_at"`
}

// BidPlacedEvent signals a bid became the new auction maximum.
type BidPlacedEvent struct {
	BidID     uuid.UUID `json:"bid_id"`
	ListingID uuid.UUID `json:"listing_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    string    `json:"amount"`
}

// BidOutbidEvent tells the previous leader they were surpassed.
type BidOutbidEvent struct {
	ListingID        uuid.UUID `json:"listing_id"`
	OutbidBidderID   uuid.UUID `json:"outbid_bidder_id"`
	NewLeadingAmount string    `json:"new_leading_amount"`
}

// AuctionAcceptedEvent is emitted once per listing when the seller accepts
// the highest bid.
type AuctionAcceptedEvent struct {
	ListingID     uuid.UUID `json:"listing_id"`
	WinningBidID  uuid.UUID `json:"winning_bid_id"`
	WinnerID      uuid.UUID `json:"winner_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	WinningAmount string    `json:"winning_amount"`
	OrderID       uuid.UUID `json:"order_id"`
}

// ListingStatusChangedEvent is emitted when a listing leaves the active state.
type ListingStatusChangedEvent struct {
	ListingID uuid.UUID           `json:"listing_id"`
	SellerID  uuid.UUID           `json:"seller_id"`
	Status    enums.ListingStatus `json:"status"`
	Reason    string              `json:"reason,omitempty"`
}

// NotificationRequestedEvent tells the notification fan-out to alert a user.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	Type    enums.NotificationType `json:"type"`
	OrderID *uuid.UUID             `json:"order_id,omitempty"`
	Title   string                 `json:"title"`
	Body    string                 `json:"body,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// Order is the fulfillment record created once a purchase, auction win,
// exchange or gift request is agreed. TotalPrice is fixed at creation and
// never recomputed from later listing price changes.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID        uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	ListingID       uuid.UUID            `gorm:"column:listing_id;type:uuid;not null;index"`
	Quantity        int                  `gorm:"column:quantity;not null;default:1"`
	UnitPrice       decimal.Decimal      `gorm:"column:unit_price;type:numeric;not null"`
	TotalPrice      decimal.Decimal      `gorm:"column:total_price;type:numeric;not null"`
	Status          enums.OrderStatus    `gorm:"column:status;type:order_status_enum;not null;default:'pending_payment'"`
	DeliveryMethod  enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method_enum;not null"`
	ShippingAddress *string              `gorm:"column:shipping_address;type:text"`
	TrackingNumber  *string              `gorm:"column:tracking_number;type:text"`
	Notes           *string              `gorm:"column:notes;type:text"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	ShippedAt       *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	CancelledAt     *time.Time           `gorm:"column:cancelled_at"`
	RefundedAt      *time.Time           `gorm:"column:refunded_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

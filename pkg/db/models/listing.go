package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// Listing is the catalog item offered for sale, auction, exchange or gift.
// The running-maximum bid columns keep HighestBid an O(1) read for
// auction-kind listings.
type Listing struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID         uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title            string              `gorm:"column:title;type:text;not null"`
	Category         string              `gorm:"column:category;type:text;not null"`
	Price            decimal.Decimal     `gorm:"column:price;type:numeric;not null"`
	Kind             enums.ListingKind   `gorm:"column:kind;type:listing_kind_enum;not null"`
	Status           enums.ListingStatus `gorm:"column:status;type:listing_status_enum;not null;default:'active'"`
	EndsAt           *time.Time          `gorm:"column:ends_at"`
	CurrentBidAmount *decimal.Decimal    `gorm:"column:current_bid_amount;type:numeric"`
	CurrentBidID     *uuid.UUID          `gorm:"column:current_bid_id;type:uuid"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

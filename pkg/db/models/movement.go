package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// Movement records an immutable, append-only balance change with a typed
// reason. Rows are never updated or deleted.
type Movement struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	Type        enums.MovementType `gorm:"column:type;type:movement_type_enum;not null"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:numeric;not null"`
	Description string             `gorm:"column:description;type:text;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmationCode gates the final hand-over of a pickup order. Only the
// argon2id hash of the code is stored; the plaintext is returned once at
// generation time and never persisted.
type ConfirmationCode struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	CodeHash       string     `gorm:"column:code_hash;type:text;not null"`
	FailedAttempts int        `gorm:"column:failed_attempts;not null;default:0"`
	ConsumedAt     *time.Time `gorm:"column:consumed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

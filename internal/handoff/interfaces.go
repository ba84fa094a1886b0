package handoff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
)

// Repository covers confirmation code persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCode(ctx context.Context, code *models.ConfirmationCode) error
	// FindActiveByOrderIDForUpdate locks the order's live code so attempt
	// counting and consumption serialize.
	FindActiveByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.ConfirmationCode, error)
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) error
	MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error
	// VoidActiveForOrder retires any live codes before a replacement is
	// issued, so at most one code can ever verify an order.
	VoidActiveForOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

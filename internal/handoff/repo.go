package handoff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a confirmation code repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCode(ctx context.Context, code *models.ConfirmationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindActiveByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.ConfirmationCode, error) {
	var code models.ConfirmationCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND consumed_at IS NULL", orderID).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ConfirmationCode{}).
		Where("id = ?", id).
		Update("failed_attempts", gorm.Expr("failed_attempts + 1")).Error
}

func (r *repository) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ConfirmationCode{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", at).Error
}

func (r *repository) VoidActiveForOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ConfirmationCode{}).
		Where("order_id = ? AND consumed_at IS NULL", orderID).
		Update("consumed_at", at).Error
}

func (r *repository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ConfirmationCode{})
	return result.RowsAffected, result.Error
}

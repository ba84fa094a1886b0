package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the read-model repository for statistics queries.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// settledStatuses are the order states where money has changed hands and
// stayed there.
var settledStatuses = []enums.OrderStatus{
	enums.OrderStatusPaid,
	enums.OrderStatusPreparing,
	enums.OrderStatusShipped,
	enums.OrderStatusInTransit,
	enums.OrderStatusDelivered,
}

func applyPeriod(q *gorm.DB, column string, period Period) *gorm.DB {
	if !period.Start.IsZero() {
		q = q.Where(column+" >= ?", period.Start)
	}
	if !period.End.IsZero() {
		q = q.Where(column+" < ?", period.End)
	}
	return q
}

func (r *repository) MovementAmounts(ctx context.Context, userID uuid.UUID, movementType *enums.MovementType, period Period) ([]decimal.Decimal, error) {
	q := r.db.WithContext(ctx).
		Table("movements").
		Joins("JOIN accounts ON accounts.id = movements.account_id").
		Where("accounts.user_id = ?", userID)
	if movementType != nil {
		q = q.Where("movements.type = ?", *movementType)
	}
	q = applyPeriod(q, "movements.created_at", period)

	var amounts []decimal.Decimal
	if err := q.Order("movements.created_at ASC").Pluck("movements.amount", &amounts).Error; err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *repository) SalesByCategory(ctx context.Context, period Period) ([]GroupedAmount, error) {
	q := r.db.WithContext(ctx).
		Table("orders").
		Select("listings.category AS key, orders.total_price AS amount").
		Joins("JOIN listings ON listings.id = orders.listing_id").
		Where("orders.status IN ?", settledStatuses)
	q = applyPeriod(q, "orders.paid_at", period)

	var rows []GroupedAmount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SalesBySeller(ctx context.Context, period Period) ([]GroupedAmount, error) {
	q := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.seller_id::text AS key, orders.total_price AS amount").
		Where("orders.status IN ?", settledStatuses)
	q = applyPeriod(q, "orders.paid_at", period)

	var rows []GroupedAmount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

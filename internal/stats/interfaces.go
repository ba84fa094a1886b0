package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// Repository reads the amounts the aggregator works over. All queries are
// read-only and never lock rows.
type Repository interface {
	// MovementAmounts returns the amounts of a user's movements, optionally
	// filtered by type, within the period.
	MovementAmounts(ctx context.Context, userID uuid.UUID, movementType *enums.MovementType, period Period) ([]decimal.Decimal, error)
	// SalesByCategory returns one row per settled order, keyed by the
	// listing's category.
	SalesByCategory(ctx context.Context, period Period) ([]GroupedAmount, error)
	// SalesBySeller returns one row per settled order, keyed by seller id.
	SalesBySeller(ctx context.Context, period Period) ([]GroupedAmount, error)
}

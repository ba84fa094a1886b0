package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

// Repository covers order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindOrderByIDForUpdate locks the order row for the transition's duration.
	FindOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByListingID(ctx context.Context, listingID uuid.UUID) (*models.Order, error)
	// UpdateOrderStatusIf applies the updates only while the order still holds
	// the expected prior status, and reports how many rows changed. A zero row
	// count means a concurrent transition won.
	UpdateOrderStatusIf(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (int64, error)
	ListOrders(ctx context.Context, limit int, cursor *pagination.Cursor, filters OrderFilters) ([]models.Order, error)
}

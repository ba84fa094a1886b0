package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

// Repository covers account and movement persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateAccount(ctx context.Context, account *models.Account) error
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	// FindAccountByUserIDForUpdate takes a row lock so concurrent balance
	// changes against the same account serialize.
	FindAccountByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	UpdateBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error
	CreateMovement(ctx context.Context, movement *models.Movement) error
	// ListMovements pages the movement log newest-first; a non-nil
	// movementType narrows it to that movement kind.
	ListMovements(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor, movementType *enums.MovementType) ([]models.Movement, error)
}

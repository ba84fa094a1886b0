package wallet

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// ApplyInput captures one balance change request.
type ApplyInput struct {
	UserID      uuid.UUID
	Type        enums.MovementType
	Amount      decimal.Decimal
	Description string
	Actor       *outbox.ActorRef
}

// ApplyResult reports the movement appended and the balance after it.
type ApplyResult struct {
	Movement *models.Movement
	Balance  decimal.Decimal
}

// MovementPage is one page of movement history, newest first.
type MovementPage struct {
	Movements  []models.Movement
	NextCursor string
}

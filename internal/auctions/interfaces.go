package auctions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
)

// Repository covers bid persistence. Superseded bids are kept for audit; only
// the running maximum ever carries accepted = true.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBid(ctx context.Context, bid *models.Bid) error
	FindBidByID(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	SetAccepted(ctx context.Context, bidID uuid.UUID, accepted bool) error
	ListBidsByListing(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Bid, error)
}

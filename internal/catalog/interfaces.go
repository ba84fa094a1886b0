package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

// Repository covers listing persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateListing(ctx context.Context, listing *models.Listing) error
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	// FindListingByIDForUpdate locks the listing row so bid placement and
	// acceptance serialize per listing.
	FindListingByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// UpdateListingStatusIf flips status only while the listing still holds
	// the expected prior status, and reports how many rows changed.
	UpdateListingStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ListingStatus) (int64, error)
	ListListings(ctx context.Context, limit int, cursor *pagination.Cursor, filters ListingFilters) ([]models.Listing, error)
	ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

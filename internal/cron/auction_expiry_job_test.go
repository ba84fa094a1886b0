package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type fakeCatalogRepo struct {
	listings map[uuid.UUID]*models.Listing
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{listings: make(map[uuid.UUID]*models.Listing)}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) CreateListing(ctx context.Context, listing *models.Listing) error {
	f.listings[listing.ID] = listing
	return nil
}

func (f *fakeCatalogRepo) FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := f.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *listing
	return &copied, nil
}

func (f *fakeCatalogRepo) FindListingByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return f.FindListingByID(ctx, id)
}

func (f *fakeCatalogRepo) UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeCatalogRepo) UpdateListingStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ListingStatus) (int64, error) {
	listing, ok := f.listings[id]
	if !ok || listing.Status != from {
		return 0, nil
	}
	listing.Status = to
	return 1, nil
}

func (f *fakeCatalogRepo) ListListings(ctx context.Context, limit int, cursor *pagination.Cursor, filters catalog.ListingFilters) ([]models.Listing, error) {
	return nil, nil
}

func (f *fakeCatalogRepo) ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	// Deliberately stale: ignores status so the per-listing transaction has
	// to re-check it, the way a snapshot scan would behave in production.
	var ids []uuid.UUID
	for id, listing := range f.listings {
		if listing.Kind != enums.ListingKindAuction {
			continue
		}
		if listing.EndsAt != nil && listing.EndsAt.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeOutboxEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeOutboxEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func auctionListing(status enums.ListingStatus, endsAt time.Time) *models.Listing {
	return &models.Listing{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Kind:     enums.ListingKindAuction,
		Status:   status,
		EndsAt:   &endsAt,
	}
}

func newAuctionExpiryJob(t *testing.T, repo catalog.Repository, emitter *fakeOutboxEmitter, now time.Time) *auctionExpiryJob {
	t.Helper()
	jobIface, err := NewAuctionExpiryJob(AuctionExpiryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         fakeTxRunner{},
		Repository: repo,
		Outbox:     emitter,
	})
	if err != nil {
		t.Fatalf("NewAuctionExpiryJob: %v", err)
	}
	job, ok := jobIface.(*auctionExpiryJob)
	if !ok {
		t.Fatalf("expected auctionExpiryJob, got %T", jobIface)
	}
	job.now = func() time.Time { return now }
	return job
}

func TestAuctionExpiryFlipsEndedAuctions(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := newFakeCatalogRepo()
	ended := auctionListing(enums.ListingStatusActive, now.Add(-time.Hour))
	running := auctionListing(enums.ListingStatusActive, now.Add(time.Hour))
	repo.listings[ended.ID] = ended
	repo.listings[running.ID] = running

	emitter := &fakeOutboxEmitter{}
	job := newAuctionExpiryJob(t, repo, emitter, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if ended.Status != enums.ListingStatusExpired {
		t.Fatalf("ended auction should be expired, got %s", ended.Status)
	}
	if running.Status != enums.ListingStatusActive {
		t.Fatalf("running auction must stay active, got %s", running.Status)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventListingStatusChanged {
		t.Fatalf("expected one listing status event, got %+v", emitter.events)
	}
}

func TestAuctionExpirySkipsSoldListings(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := newFakeCatalogRepo()
	// Sold between the id scan and the per-listing transaction.
	sold := auctionListing(enums.ListingStatusSold, now.Add(-time.Hour))
	repo.listings[sold.ID] = sold

	emitter := &fakeOutboxEmitter{}
	job := newAuctionExpiryJob(t, repo, emitter, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sold.Status != enums.ListingStatusSold {
		t.Fatalf("sold listing must not change, got %s", sold.Status)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no events expected, got %+v", emitter.events)
	}
}

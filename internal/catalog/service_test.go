package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type stubListingsRepo struct {
	listings map[uuid.UUID]*models.Listing
}

func newStubListingsRepo() *stubListingsRepo {
	return &stubListingsRepo{listings: make(map[uuid.UUID]*models.Listing)}
}

func (s *stubListingsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubListingsRepo) CreateListing(ctx context.Context, listing *models.Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = testNow
	}
	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *stubListingsRepo) FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return s.FindListingByIDForUpdate(ctx, id)
}

func (s *stubListingsRepo) FindListingByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := s.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *listing
	return &copied, nil
}

func (s *stubListingsRepo) UpdateListing(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	listing, ok := s.listings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.ListingStatus); ok {
		listing.Status = status
	}
	return nil
}

func (s *stubListingsRepo) UpdateListingStatusIf(ctx context.Context, id uuid.UUID, from, to enums.ListingStatus) (int64, error) {
	listing, ok := s.listings[id]
	if !ok || listing.Status != from {
		return 0, nil
	}
	listing.Status = to
	return 1, nil
}

func (s *stubListingsRepo) ListListings(ctx context.Context, limit int, cursor *pagination.Cursor, filters ListingFilters) ([]models.Listing, error) {
	var rows []models.Listing
	for _, listing := range s.listings {
		rows = append(rows, *listing)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *stubListingsRepo) ListExpiredAuctionIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository) (Service, *stubOutboxPublisher) {
	t.Helper()
	pub := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, pub, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, pub
}

func TestCreateSaleListing(t *testing.T) {
	repo := newStubListingsRepo()
	svc, _ := newTestService(t, repo)

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SellerID: uuid.New(),
		Title:    "  Calculus textbook  ",
		Category: "books",
		Price:    decimal.RequireFromString("25.50"),
		Kind:     enums.ListingKindSale,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if listing.Title != "Calculus textbook" {
		t.Fatalf("title not trimmed: %q", listing.Title)
	}
	if listing.Status != enums.ListingStatusActive {
		t.Fatalf("new listing status = %s, want active", listing.Status)
	}
	if _, ok := repo.listings[listing.ID]; !ok {
		t.Fatal("listing not persisted")
	}
}

func TestCreateGiftListingRejectsPrice(t *testing.T) {
	svc, _ := newTestService(t, newStubListingsRepo())

	_, err := svc.Create(context.Background(), CreateListingInput{
		SellerID: uuid.New(),
		Title:    "Free desk lamp",
		Category: "furniture",
		Price:    decimal.RequireFromString("5.00"),
		Kind:     enums.ListingKindGift,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateGiftListingAllowsZeroPrice(t *testing.T) {
	svc, _ := newTestService(t, newStubListingsRepo())

	listing, err := svc.Create(context.Background(), CreateListingInput{
		SellerID: uuid.New(),
		Title:    "Free desk lamp",
		Category: "furniture",
		Price:    decimal.Zero,
		Kind:     enums.ListingKindGift,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !listing.Price.IsZero() {
		t.Fatalf("gift price = %s, want 0", listing.Price)
	}
}

func TestCreateAuctionRequiresFutureEnd(t *testing.T) {
	svc, _ := newTestService(t, newStubListingsRepo())

	_, err := svc.Create(context.Background(), CreateListingInput{
		SellerID: uuid.New(),
		Title:    "Vintage bike",
		Category: "transport",
		Price:    decimal.RequireFromString("80.00"),
		Kind:     enums.ListingKindAuction,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing end time, got %v", err)
	}

	past := testNow.Add(-time.Hour)
	_, err = svc.Create(context.Background(), CreateListingInput{
		SellerID: uuid.New(),
		Title:    "Vintage bike",
		Category: "transport",
		Price:    decimal.RequireFromString("80.00"),
		Kind:     enums.ListingKindAuction,
		EndsAt:   &past,
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for past end time, got %v", err)
	}
}

func TestSetStatusEmitsEvent(t *testing.T) {
	repo := newStubListingsRepo()
	svc, pub := newTestService(t, repo)
	sellerID := uuid.New()

	listing := &models.Listing{
		SellerID: sellerID,
		Title:    "Desk",
		Category: "furniture",
		Price:    decimal.RequireFromString("10.00"),
		Kind:     enums.ListingKindSale,
		Status:   enums.ListingStatusActive,
	}
	if err := repo.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	err := svc.SetStatus(context.Background(), SetStatusInput{
		ListingID: listing.ID,
		ActorID:   sellerID,
		Status:    enums.ListingStatusWithdrawn,
		Reason:    "no longer for sale",
	})
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if repo.listings[listing.ID].Status != enums.ListingStatusWithdrawn {
		t.Fatalf("listing status = %s, want withdrawn", repo.listings[listing.ID].Status)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	if pub.events[0].EventType != enums.EventListingStatusChanged {
		t.Fatalf("event type = %s, want listing_status_changed", pub.events[0].EventType)
	}
}

func TestSetStatusRejectsNonSeller(t *testing.T) {
	repo := newStubListingsRepo()
	svc, pub := newTestService(t, repo)

	listing := &models.Listing{
		SellerID: uuid.New(),
		Title:    "Desk",
		Category: "furniture",
		Price:    decimal.RequireFromString("10.00"),
		Kind:     enums.ListingKindSale,
		Status:   enums.ListingStatusActive,
	}
	if err := repo.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	err := svc.SetStatus(context.Background(), SetStatusInput{
		ListingID: listing.ID,
		ActorID:   uuid.New(),
		Status:    enums.ListingStatusWithdrawn,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events, got %d", len(pub.events))
	}
}

func TestSetStatusIsIdempotentAndFinal(t *testing.T) {
	repo := newStubListingsRepo()
	svc, pub := newTestService(t, repo)
	sellerID := uuid.New()

	listing := &models.Listing{
		SellerID: sellerID,
		Title:    "Desk",
		Category: "furniture",
		Price:    decimal.RequireFromString("10.00"),
		Kind:     enums.ListingKindSale,
		Status:   enums.ListingStatusSold,
	}
	if err := repo.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	// Same status is a no-op.
	if err := svc.SetStatus(context.Background(), SetStatusInput{
		ListingID: listing.ID,
		ActorID:   sellerID,
		Status:    enums.ListingStatusSold,
	}); err != nil {
		t.Fatalf("same-status set should be a no-op, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no-op should not emit events, got %d", len(pub.events))
	}

	// Leaving a terminal state is refused.
	err := svc.SetStatus(context.Background(), SetStatusInput{
		ListingID: listing.ID,
		ActorID:   sellerID,
		Status:    enums.ListingStatusWithdrawn,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

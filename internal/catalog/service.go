package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines listing catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateListingInput) (*models.Listing, error)
	Get(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
	SetStatus(ctx context.Context, input SetStatusInput) error
	List(ctx context.Context, params pagination.Params, filters ListingFilters) (*ListingPage, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	clock  clock.Clock
}

// NewService wires the catalog service with its dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, clock: clk}, nil
}

func (s *service) Create(ctx context.Context, input CreateListingInput) (*models.Listing, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid listing kind %q", input.Kind))
	}
	// Gift listings carry a zero price; everything else must be positive.
	if input.Kind == enums.ListingKindGift {
		if !input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift listings cannot carry a price")
		}
	} else if !money.IsPositive(input.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Kind == enums.ListingKindAuction {
		if input.EndsAt == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction listings require an end time")
		}
		if !input.EndsAt.After(s.clock.Now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction end time must be in the future")
		}
	}

	listing := &models.Listing{
		SellerID: input.SellerID,
		Title:    strings.TrimSpace(input.Title),
		Category: strings.TrimSpace(input.Category),
		Price:    input.Price,
		Kind:     input.Kind,
		Status:   enums.ListingStatusActive,
		EndsAt:   input.EndsAt,
	}
	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	return listing, nil
}

func (s *service) Get(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) error {
	if input.ListingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid listing status %q", input.Status))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindListingByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can change listing status")
		}
		if listing.Status == input.Status {
			return nil
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "listing already left the active state")
		}

		if err := repo.UpdateListing(ctx, listing.ID, map[string]any{"status": input.Status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventListingStatusChanged,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.ListingStatusChangedEvent{
				ListingID: listing.ID,
				SellerID:  listing.SellerID,
				Status:    input.Status,
				Reason:    input.Reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListingFilters) (*ListingPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListListings(ctx, limit+1, cursor, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}

	page := &ListingPage{Listings: rows}
	if len(rows) > limit {
		page.Listings = rows[:limit]
		last := page.Listings[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

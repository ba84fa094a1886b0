package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
)

const expiryBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AuctionExpiryJobParams configure the auction expiry sweep.
type AuctionExpiryJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository catalog.Repository
	Outbox     outboxEmitter
}

// NewAuctionExpiryJob builds the job that flips ended auctions to expired.
func NewAuctionExpiryJob(params AuctionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &auctionExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type auctionExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   catalog.Repository
	outbox outboxEmitter
	now    func() time.Time
}

func (j *auctionExpiryJob) Name() string { return "auction-expiry" }

func (j *auctionExpiryJob) Run(ctx context.Context) error {
	ids, err := j.repo.ListExpiredAuctionIDs(ctx, j.now().UTC(), expiryBatchSize)
	if err != nil {
		return fmt.Errorf("query ended auctions: %w", err)
	}

	var errs []error
	expired := 0
	for _, id := range ids {
		if err := j.expireListing(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("expire listing %s: %w", id, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(ids),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "auction expiry loop complete")
	return multierr.Combine(errs...)
}

func (j *auctionExpiryJob) expireListing(ctx context.Context, listingID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		listing, err := repo.FindListingByIDForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		// Sold or withdrawn in the meantime; nothing to do.
		if listing.Status != enums.ListingStatusActive {
			return nil
		}
		rows, err := repo.UpdateListingStatusIf(ctx, listingID, enums.ListingStatusActive, enums.ListingStatusExpired)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventListingStatusChanged,
			AggregateType: enums.AggregateListing,
			AggregateID:   listingID,
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: payloads.ListingStatusChangedEvent{
				ListingID: listingID,
				SellerID:  listing.SellerID,
				Status:    enums.ListingStatusExpired,
				Reason:    "auction ended without acceptance",
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
}

package auctions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/internal/orders"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderCreator is the slice of the orders service auction acceptance needs.
type OrderCreator interface {
	CreateTx(ctx context.Context, tx *gorm.DB, input orders.CreateOrderInput) (*models.Order, error)
	FindByListingTx(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*models.Order, error)
}

// Service runs the auction bid engine.
type Service interface {
	PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error)
	// HighestBid is an O(1) read off the listing's running-maximum columns.
	HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error)
	// AcceptHighestBid closes the auction on its current maximum. Calling it
	// again for a closed auction returns the existing order unchanged.
	AcceptHighestBid(ctx context.Context, input AcceptInput) (*models.Order, error)
	ListBids(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Bid, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	orders  OrderCreator
	tx      txRunner
	outbox  outboxPublisher
	clock   clock.Clock
}

// NewService wires the auction service with its dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, orderSvc OrderCreator, tx txRunner, outboxSvc outboxPublisher, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bids repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order creator required")
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
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		orders:  orderSvc,
		tx:      tx,
		outbox:  outboxSvc,
		clock:   clk,
	}, nil
}

func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*models.Bid, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.BidderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bidder id required")
	}
	if !money.IsPositive(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}
	if !input.Amount.Equal(input.Amount.Round(money.DisplayPlaces)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must have at most two decimal places")
	}

	var placed *models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		// The listing row lock serializes all bids on one auction, so the
		// strictly-increasing check is race free.
		listing, err := catalogRepo.FindListingByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.Kind != enums.ListingKindAuction {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing is not an auction")
		}
		if listing.SellerID == input.BidderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "sellers cannot bid on their own auction")
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeBidRejected, "auction is closed")
		}
		if listing.EndsAt != nil && !listing.EndsAt.After(s.clock.Now()) {
			return pkgerrors.New(pkgerrors.CodeBidRejected, "auction has ended")
		}

		if listing.CurrentBidAmount == nil {
			if input.Amount.LessThan(listing.Price) {
				return pkgerrors.New(pkgerrors.CodeBidRejected, "first bid must meet the starting price").
					WithDetails(map[string]string{"starting_price": money.Format(listing.Price)})
			}
		} else if !input.Amount.GreaterThan(*listing.CurrentBidAmount) {
			return pkgerrors.New(pkgerrors.CodeBidRejected, "bid must exceed the current maximum").
				WithDetails(map[string]string{"current_bid": money.Format(*listing.CurrentBidAmount)})
		}

		repo := s.repo.WithTx(tx)
		bid := &models.Bid{
			ListingID: listing.ID,
			BidderID:  input.BidderID,
			Amount:    input.Amount,
			Accepted:  true,
		}
		if err := repo.CreateBid(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store bid")
		}

		var outbidBidderID *uuid.UUID
		if listing.CurrentBidID != nil {
			previous, err := repo.FindBidByID(ctx, *listing.CurrentBidID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load previous maximum")
			}
			if err := repo.SetAccepted(ctx, previous.ID, false); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede previous maximum")
			}
			outbidBidderID = &previous.BidderID
		}

		if err := catalogRepo.UpdateListing(ctx, listing.ID, map[string]any{
			"current_bid_amount": bid.Amount,
			"current_bid_id":     bid.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance running maximum")
		}

		placedEvent := outbox.DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateBid,
			AggregateID:   bid.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.BidPlacedEvent{
				BidID:     bid.ID,
				ListingID: listing.ID,
				BidderID:  bid.BidderID,
				Amount:    money.Format(bid.Amount),
			},
		}
		if err := s.outbox.Emit(ctx, tx, placedEvent); err != nil {
			return err
		}
		if outbidBidderID != nil {
			outbidEvent := outbox.DomainEvent{
				EventType:     enums.EventBidOutbid,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Version:       1,
				Actor:         input.Actor,
				Data: payloads.BidOutbidEvent{
					ListingID:        listing.ID,
					OutbidBidderID:   *outbidBidderID,
					NewLeadingAmount: money.Format(bid.Amount),
				},
			}
			if err := s.outbox.Emit(ctx, tx, outbidEvent); err != nil {
				return err
			}
		}

		placed = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *service) HighestBid(ctx context.Context, listingID uuid.UUID) (*models.Bid, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.catalog.FindListingByID(ctx, listingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.Kind != enums.ListingKindAuction {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing is not an auction")
	}
	if listing.CurrentBidID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction has no bids")
	}
	bid, err := s.repo.FindBidByID(ctx, *listing.CurrentBidID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load highest bid")
	}
	return bid, nil
}

func (s *service) AcceptHighestBid(ctx context.Context, input AcceptInput) (*models.Order, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	method := input.DeliveryMethod
	if method == "" {
		method = enums.DeliveryMethodPickup
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery method %q", method))
	}

	var accepted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		listing, err := catalogRepo.FindListingByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.Kind != enums.ListingKindAuction {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing is not an auction")
		}
		if listing.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can accept a bid")
		}
		if listing.CurrentBidID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction has no bids to accept")
		}

		// Re-acceptance is a no-op that hands back the order created the
		// first time.
		if listing.Status == enums.ListingStatusSold {
			existing, err := s.orders.FindByListingTx(ctx, tx, listing.ID)
			if err != nil {
				return err
			}
			accepted = existing
			return nil
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction listing is no longer open")
		}

		winning, err := s.repo.WithTx(tx).FindBidByID(ctx, *listing.CurrentBidID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load winning bid")
		}

		amount := winning.Amount
		order, err := s.orders.CreateTx(ctx, tx, orders.CreateOrderInput{
			ListingID:         listing.ID,
			BuyerID:           winning.BidderID,
			Quantity:          1,
			DeliveryMethod:    method,
			UnitPriceOverride: &amount,
			Actor:             input.Actor,
		})
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAuctionAccepted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.AuctionAcceptedEvent{
				ListingID:     listing.ID,
				WinningBidID:  winning.ID,
				WinnerID:      winning.BidderID,
				SellerID:      listing.SellerID,
				WinningAmount: money.Format(winning.Amount),
				OrderID:       order.ID,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		accepted = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *service) ListBids(ctx context.Context, listingID uuid.UUID, limit int) ([]models.Bid, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.repo.ListBidsByListing(ctx, listingID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}
	return rows, nil
}

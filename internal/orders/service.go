package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/internal/wallet"
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

// LedgerApplier moves money inside a caller-owned transaction.
type LedgerApplier interface {
	ApplyTx(ctx context.Context, tx *gorm.DB, input wallet.ApplyInput) (*wallet.ApplyResult, error)
}

// Service drives the order fulfillment lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	// CreateTx creates an order inside a caller-owned transaction, used by
	// auction acceptance to keep listing, bid and order writes atomic.
	CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindByListingTx returns the most recent order for a listing inside a
	// caller-owned transaction, used for idempotent auction acceptance.
	FindByListingTx(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*models.Order, error)
	Pay(ctx context.Context, input TransitionInput) (*models.Order, error)
	StartPreparing(ctx context.Context, input TransitionInput) (*models.Order, error)
	SetTracking(ctx context.Context, input SetTrackingInput) (*models.Order, error)
	MarkInTransit(ctx context.Context, input TransitionInput) (*models.Order, error)
	MarkDelivered(ctx context.Context, input TransitionInput) (*models.Order, error)
	// MarkDeliveredTx completes a pickup order inside a caller-owned
	// transaction after confirmation code verification.
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Refund(ctx context.Context, input CancelInput) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderPage, error)
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	ledger  LedgerApplier
	tx      txRunner
	outbox  outboxPublisher
	clock   clock.Clock
}

// NewService wires the orders service with its dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, ledger LedgerApplier, tx txRunner, outboxSvc outboxPublisher, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger applier required")
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
		ledger:  ledger,
		tx:      tx,
		outbox:  outboxSvc,
		clock:   clk,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreateTx(ctx, tx, input)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) CreateTx(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*models.Order, error) {
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery method %q", input.DeliveryMethod))
	}
	if input.DeliveryMethod == enums.DeliveryMethodShipping {
		if input.ShippingAddress == nil || strings.TrimSpace(*input.ShippingAddress) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required for shipping orders")
		}
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	catalogRepo := s.catalog.WithTx(tx)
	listing, err := catalogRepo.FindListingByIDForUpdate(ctx, input.ListingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.SellerID == input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer cannot purchase their own listing")
	}
	if listing.Kind == enums.ListingKindAuction && input.UnitPriceOverride == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "auction orders are created by accepting the highest bid")
	}

	unitPrice := listing.Price
	if input.UnitPriceOverride != nil {
		unitPrice = *input.UnitPriceOverride
	}
	totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	// The listing leaves the active pool atomically with order creation, so
	// a second concurrent buyer observes zero rows changed and backs off.
	rows, err := catalogRepo.UpdateListingStatusIf(ctx, listing.ID, enums.ListingStatusActive, enums.ListingStatusSold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve listing")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "listing is no longer available")
	}

	order := &models.Order{
		BuyerID:         input.BuyerID,
		SellerID:        listing.SellerID,
		ListingID:       listing.ID,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		TotalPrice:      totalPrice,
		Status:          enums.OrderStatusPendingPayment,
		DeliveryMethod:  input.DeliveryMethod,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
	}
	repo := s.repo.WithTx(tx)
	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         input.Actor,
		Data: payloads.OrderCreatedEvent{
			OrderID:        order.ID,
			ListingID:      order.ListingID,
			BuyerID:        order.BuyerID,
			SellerID:       order.SellerID,
			TotalPrice:     money.Format(order.TotalPrice),
			DeliveryMethod: order.DeliveryMethod,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) FindByListingTx(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*models.Order, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	order, err := s.repo.WithTx(tx).FindOrderByListingID(ctx, listingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) Pay(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var paid *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can pay for an order")
		}
		if err := requireTransition(order.Status, enums.OrderStatusPaid); err != nil {
			return err
		}

		if order.TotalPrice.IsPositive() {
			if _, err := s.ledger.ApplyTx(ctx, tx, wallet.ApplyInput{
				UserID:      order.BuyerID,
				Type:        enums.MovementTypePurchase,
				Amount:      order.TotalPrice,
				Description: fmt.Sprintf("payment for order %s", order.ID),
				Actor:       input.Actor,
			}); err != nil {
				return err
			}
			if _, err := s.ledger.ApplyTx(ctx, tx, wallet.ApplyInput{
				UserID:      order.SellerID,
				Type:        enums.MovementTypeCredit,
				Amount:      order.TotalPrice,
				Description: fmt.Sprintf("sale proceeds for order %s", order.ID),
				Actor:       input.Actor,
			}); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		updated, err := s.transition(ctx, tx, order, enums.OrderStatusPaid, map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": now,
		}, input.Actor, "")
		if err != nil {
			return err
		}
		updated.PaidAt = &now
		paid = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

func (s *service) StartPreparing(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.sellerTransition(ctx, input, enums.OrderStatusPreparing, nil)
}

func (s *service) SetTracking(ctx context.Context, input SetTrackingInput) (*models.Order, error) {
	tracking := strings.TrimSpace(input.TrackingNumber)
	if tracking == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}

	var shipped *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can assign tracking")
		}
		// Assigning the reference while preparing is the hand-off point: the
		// order advances to shipped in the same write. For pickup orders the
		// reference is free-form (a locker number, a meeting spot).
		if err := requireTransition(order.Status, enums.OrderStatusShipped); err != nil {
			return err
		}

		now := s.clock.Now()
		updated, err := s.transition(ctx, tx, order, enums.OrderStatusShipped, map[string]any{
			"status":          enums.OrderStatusShipped,
			"tracking_number": tracking,
			"shipped_at":      now,
		}, input.Actor, tracking)
		if err != nil {
			return err
		}
		updated.TrackingNumber = &tracking
		updated.ShippedAt = &now
		shipped = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipped, nil
}

func (s *service) MarkInTransit(ctx context.Context, input TransitionInput) (*models.Order, error) {
	return s.sellerTransition(ctx, input, enums.OrderStatusInTransit, nil)
}

func (s *service) MarkDelivered(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var delivered *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
		}
		if order.DeliveryMethod == enums.DeliveryMethodPickup {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup orders complete via confirmation code")
		}
		updated, err := s.completeDelivery(ctx, tx, order, input.Actor)
		if err != nil {
			return err
		}
		delivered = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivered, nil
}

func (s *service) MarkDeliveredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error) {
	order, err := s.lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	return s.completeDelivery(ctx, tx, order, actor)
}

func (s *service) completeDelivery(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) (*models.Order, error) {
	if err := requireTransition(order.Status, enums.OrderStatusDelivered); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	updated, err := s.transition(ctx, tx, order, enums.OrderStatusDelivered, map[string]any{
		"status":       enums.OrderStatusDelivered,
		"delivered_at": now,
	}, actor, "")
	if err != nil {
		return nil, err
	}
	updated.DeliveredAt = &now
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.ActorID && order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only a party to the order can cancel it")
		}
		if err := requireTransition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}

		refunded := order.Status != enums.OrderStatusPendingPayment && order.TotalPrice.IsPositive()
		if refunded {
			if err := s.reverseSettlement(ctx, tx, order, input.Actor); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		rows, err := s.repo.WithTx(tx).UpdateOrderStatusIf(ctx, order.ID, order.Status, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		// The listing returns to the market when a pre-shipment order dies.
		if _, err := s.catalog.WithTx(tx).UpdateListingStatusIf(ctx, order.ListingID, enums.ListingStatusSold, enums.ListingStatusActive); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release listing")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				CancelledAt: now,
				Refunded:    refunded,
				Reason:      input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) Refund(ctx context.Context, input CancelInput) (*models.Order, error) {
	var refunded *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can refund a delivered order")
		}
		if err := requireTransition(order.Status, enums.OrderStatusRefunded); err != nil {
			return err
		}

		if order.TotalPrice.IsPositive() {
			if err := s.reverseSettlement(ctx, tx, order, input.Actor); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		rows, err := s.repo.WithTx(tx).UpdateOrderStatusIf(ctx, order.ID, order.Status, map[string]any{
			"status":      enums.OrderStatusRefunded,
			"refunded_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.OrderRefundedEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				SellerID:   order.SellerID,
				Amount:     money.Format(order.TotalPrice),
				RefundedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		order.Status = enums.OrderStatusRefunded
		order.RefundedAt = &now
		refunded = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListOrders(ctx, limit+1, cursor, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &OrderPage{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// sellerTransition covers the simple seller-driven moves that only flip status.
func (s *service) sellerTransition(ctx context.Context, input TransitionInput, target enums.OrderStatus, extra map[string]any) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		if order.SellerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can perform this transition")
		}
		if err := requireTransition(order.Status, target); err != nil {
			return err
		}

		updates := map[string]any{"status": target}
		for key, value := range extra {
			updates[key] = value
		}
		updated, err := s.transition(ctx, tx, order, target, updates, input.Actor, "")
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transition applies the conditional status update and emits the state change
// event. The caller validated the move already.
func (s *service) transition(ctx context.Context, tx *gorm.DB, order *models.Order, target enums.OrderStatus, updates map[string]any, actor *outbox.ActorRef, tracking string) (*models.Order, error) {
	rows, err := s.repo.WithTx(tx).UpdateOrderStatusIf(ctx, order.ID, order.Status, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.OrderStateChangedEvent{
			OrderID:        order.ID,
			BuyerID:        order.BuyerID,
			SellerID:       order.SellerID,
			FromStatus:     order.Status,
			ToStatus:       target,
			TrackingNumber: tracking,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	order.Status = target
	return order, nil
}

// reverseSettlement returns the purchase amount to the buyer and claws it
// back from the seller.
func (s *service) reverseSettlement(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef) error {
	if _, err := s.ledger.ApplyTx(ctx, tx, wallet.ApplyInput{
		UserID:      order.SellerID,
		Type:        enums.MovementTypeDebit,
		Amount:      order.TotalPrice,
		Description: fmt.Sprintf("refund clawback for order %s", order.ID),
		Actor:       actor,
	}); err != nil {
		return err
	}
	if _, err := s.ledger.ApplyTx(ctx, tx, wallet.ApplyInput{
		UserID:      order.BuyerID,
		Type:        enums.MovementTypeCredit,
		Amount:      order.TotalPrice,
		Description: fmt.Sprintf("refund for order %s", order.ID),
		Actor:       actor,
	}); err != nil {
		return err
	}
	return nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.WithTx(tx).FindOrderByIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func requireTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

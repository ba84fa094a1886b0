package handoff

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/config"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox/payloads"
	"github.com/mruizcampos/unimarket-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderGate is the slice of the orders service the hand-over flow needs.
type OrderGate interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error)
}

// Service gates pickup hand-over behind hashed one-time codes.
type Service interface {
	// Generate issues a fresh code for the order, voiding any live
	// predecessor. The plaintext is returned once and never stored.
	Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error)
	// Verify checks one attempt. A correct code consumes itself and
	// completes the order; a wrong one burns an attempt.
	Verify(ctx context.Context, input VerifyInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	orders   OrderGate
	tx       txRunner
	outbox   outboxPublisher
	clock    clock.Clock
	handoff  config.HandoffConfig
	codeConf config.CodeConfig
}

// NewService wires the hand-over service with its dependencies.
func NewService(repo Repository, orderGate OrderGate, tx txRunner, outboxSvc outboxPublisher, clk clock.Clock, handoffCfg config.HandoffConfig, codeCfg config.CodeConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("handoff repository required")
	}
	if orderGate == nil {
		return nil, fmt.Errorf("order gate required")
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
	if handoffCfg.CodeTTL <= 0 {
		return nil, fmt.Errorf("code ttl must be positive")
	}
	if handoffCfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	return &service{
		repo:     repo,
		orders:   orderGate,
		tx:       tx,
		outbox:   outboxSvc,
		clock:    clk,
		handoff:  handoffCfg,
		codeConf: codeCfg,
	}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can issue a hand-over code")
	}
	if order.DeliveryMethod != enums.DeliveryMethodPickup {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hand-over codes apply to pickup orders only")
	}
	switch order.Status {
	case enums.OrderStatusPaid, enums.OrderStatusPreparing, enums.OrderStatusShipped:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting hand-over")
	}

	plaintext, err := security.GenerateCode(s.handoff.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	hash, err := security.HashCode(plaintext, s.codeConf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash code")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.clock.Now()
		if err := repo.VoidActiveForOrder(ctx, order.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "void previous codes")
		}
		code := &models.ConfirmationCode{
			UserID:   order.BuyerID,
			OrderID:  order.ID,
			CodeHash: hash,
		}
		if err := repo.CreateCode(ctx, code); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store code")
		}

		orderID := order.ID
		event := outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   code.ID,
			Version:       1,
			Actor:         input.Actor,
			Data: payloads.NotificationRequestedEvent{
				UserID:  order.BuyerID,
				Type:    enums.NotificationTypeHandoffIssued,
				OrderID: &orderID,
				Title:   "your pickup code is ready",
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResult{OrderID: order.ID, Code: plaintext}, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code required")
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != input.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can confirm hand-over")
	}
	if order.DeliveryMethod != enums.DeliveryMethodPickup {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "hand-over codes apply to pickup orders only")
	}

	var delivered *models.Order
	var rejection error
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		code, err := repo.FindActiveByOrderIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// No live code means nothing to verify against; the
				// fail-closed answer is the same as an expired one.
				return pkgerrors.New(pkgerrors.CodeCodeExpiredOrLocked, "no active hand-over code")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
		}

		now := s.clock.Now()
		if now.Sub(code.CreatedAt) > s.handoff.CodeTTL {
			return pkgerrors.New(pkgerrors.CodeCodeExpiredOrLocked, "hand-over code expired")
		}
		if code.FailedAttempts >= s.handoff.MaxAttempts {
			return pkgerrors.New(pkgerrors.CodeCodeExpiredOrLocked, "hand-over code locked after too many attempts")
		}

		match, err := security.VerifyCode(strings.ToUpper(strings.TrimSpace(input.Code)), code.CodeHash)
		if err != nil {
			// An unreadable hash must never verify.
			return pkgerrors.Wrap(pkgerrors.CodeCodeExpiredOrLocked, err, "hand-over code unreadable")
		}
		if !match {
			if err := repo.IncrementFailedAttempts(ctx, code.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
			}
			// The transaction commits so the burned attempt survives; only
			// the rejection travels back to the caller.
			remaining := s.handoff.MaxAttempts - code.FailedAttempts - 1
			if remaining <= 0 {
				rejection = pkgerrors.New(pkgerrors.CodeCodeExpiredOrLocked, "hand-over code locked after too many attempts")
				return nil
			}
			rejection = pkgerrors.New(pkgerrors.CodeValidation, "incorrect hand-over code").
				WithDetails(map[string]int{"attempts_remaining": remaining})
			return nil
		}

		if err := repo.MarkConsumed(ctx, code.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume code")
		}

		completed, err := s.orders.MarkDeliveredTx(ctx, tx, input.OrderID, input.Actor)
		if err != nil {
			return err
		}
		delivered = completed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return delivered, nil
}

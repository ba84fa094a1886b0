package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db"
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

// Service defines the account ledger operations.
type Service interface {
	Credit(ctx context.Context, input ApplyInput) (*ApplyResult, error)
	Debit(ctx context.Context, input ApplyInput) (*ApplyResult, error)
	Recharge(ctx context.Context, input ApplyInput) (*ApplyResult, error)
	Purchase(ctx context.Context, input ApplyInput) (*ApplyResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	// Movements pages the caller's movement history, optionally narrowed to
	// one movement type.
	Movements(ctx context.Context, userID uuid.UUID, params pagination.Params, movementType *enums.MovementType) (*MovementPage, error)

	// ApplyTx performs a balance change inside a caller-owned transaction so
	// order payment and refund flows stay atomic with their own writes.
	ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*ApplyResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires the wallet service with its dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Credit(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	input.Type = enums.MovementTypeCredit
	return s.apply(ctx, input)
}

func (s *service) Debit(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	input.Type = enums.MovementTypeDebit
	return s.apply(ctx, input)
}

func (s *service) Recharge(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	input.Type = enums.MovementTypeRecharge
	return s.apply(ctx, input)
}

func (s *service) Purchase(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	input.Type = enums.MovementTypePurchase
	return s.apply(ctx, input)
}

func (s *service) apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTx(ctx, tx, input)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*ApplyResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}
	if !money.IsPositive(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Amount.Equal(input.Amount.Round(money.DisplayPlaces)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}

	repo := s.repo.WithTx(tx)

	account, err := repo.FindAccountByUserIDForUpdate(ctx, input.UserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			account, err = s.createAccount(ctx, repo, input.UserID)
		}
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
		}
	}

	balance := account.Balance
	if input.Type.IsCredit() {
		balance = balance.Add(input.Amount)
	} else {
		if account.Balance.LessThan(input.Amount) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance too low for movement").
				WithDetails(map[string]string{
					"balance": money.Format(account.Balance),
					"amount":  money.Format(input.Amount),
				})
		}
		balance = balance.Sub(input.Amount)
	}

	if err := repo.UpdateBalance(ctx, account.ID, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}

	movement := &models.Movement{
		AccountID:   account.ID,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append movement")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   movement.ID,
		Version:       1,
		Actor:         input.Actor,
		Data: payloads.NotificationRequestedEvent{
			UserID: input.UserID,
			Type:   enums.NotificationTypeWalletUpdate,
			Title:  fmt.Sprintf("%s of %s applied", input.Type, money.Format(input.Amount)),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	return &ApplyResult{Movement: movement, Balance: balance}, nil
}

func (s *service) createAccount(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Account, error) {
	account := &models.Account{
		UserID:  userID,
		Balance: decimal.Zero,
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		// A concurrent first movement for the same user won the insert; the
		// caller can retry against the now-existing account.
		if db.IsUniqueViolation(err, "ux_accounts_user") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "account created concurrently")
		}
		return nil, err
	}
	// Lock the fresh row so the rest of the transaction holds it like any
	// pre-existing account.
	return repo.FindAccountByUserIDForUpdate(ctx, userID)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account.Balance, nil
}

func (s *service) Movements(ctx context.Context, userID uuid.UUID, params pagination.Params, movementType *enums.MovementType) (*MovementPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &MovementPage{Movements: []models.Movement{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListMovements(ctx, account.ID, limit+1, cursor, movementType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}

	page := &MovementPage{Movements: rows}
	if len(rows) > limit {
		page.Movements = rows[:limit]
		last := page.Movements[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

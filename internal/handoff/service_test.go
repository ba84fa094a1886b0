package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/config"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testHandoffConfig() config.HandoffConfig {
	return config.HandoffConfig{
		CodeTTL:     24 * time.Hour,
		MaxAttempts: 3,
		CodeLength:  6,
	}
}

func testCodeConfig() config.CodeConfig {
	return config.CodeConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

type stubCodesRepo struct {
	codes map[uuid.UUID]*models.ConfirmationCode
}

func newStubCodesRepo() *stubCodesRepo {
	return &stubCodesRepo{codes: make(map[uuid.UUID]*models.ConfirmationCode)}
}

func (s *stubCodesRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubCodesRepo) CreateCode(ctx context.Context, code *models.ConfirmationCode) error {
	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = testNow
	}
	copied := *code
	s.codes[code.ID] = &copied
	return nil
}

func (s *stubCodesRepo) FindActiveByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.ConfirmationCode, error) {
	var latest *models.ConfirmationCode
	for _, code := range s.codes {
		if code.OrderID != orderID || code.ConsumedAt != nil {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *stubCodesRepo) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) error {
	code, ok := s.codes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	code.FailedAttempts++
	return nil
}

func (s *stubCodesRepo) MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error {
	code, ok := s.codes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	code.ConsumedAt = &at
	return nil
}

func (s *stubCodesRepo) VoidActiveForOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	for _, code := range s.codes {
		if code.OrderID == orderID && code.ConsumedAt == nil {
			code.ConsumedAt = &at
		}
	}
	return nil
}

func (s *stubCodesRepo) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, code := range s.codes {
		if code.CreatedAt.Before(cutoff) {
			delete(s.codes, id)
			removed++
		}
	}
	return removed, nil
}

type stubOrderGate struct {
	order *models.Order
}

func (s *stubOrderGate) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrderGate) MarkDeliveredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor *outbox.ActorRef) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	s.order.Status = enums.OrderStatusDelivered
	copied := *s.order
	return &copied, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// rollbackTxRunner mirrors the real runner: repo writes made by a callback
// that returns an error are rolled back.
type rollbackTxRunner struct {
	repo *stubCodesRepo
}

func (r rollbackTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snapshot := make(map[uuid.UUID]*models.ConfirmationCode, len(r.repo.codes))
	for id, code := range r.repo.codes {
		copied := *code
		snapshot[id] = &copied
	}
	if err := fn(nil); err != nil {
		r.repo.codes = snapshot
		return err
	}
	return nil
}

func pickupOrder(sellerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		BuyerID:        uuid.New(),
		SellerID:       sellerID,
		ListingID:      uuid.New(),
		Status:         enums.OrderStatusPreparing,
		DeliveryMethod: enums.DeliveryMethodPickup,
	}
}

func newTestService(t *testing.T, repo Repository, gate OrderGate) (Service, *stubOutboxPublisher) {
	t.Helper()
	pub := &stubOutboxPublisher{}
	svc, err := NewService(repo, gate, stubTxRunner{}, pub, clock.Fixed(testNow), testHandoffConfig(), testCodeConfig())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, pub
}

func TestGenerateAndVerifyConsumesCode(t *testing.T) {
	sellerID := uuid.New()
	gate := &stubOrderGate{order: pickupOrder(sellerID)}
	repo := newStubCodesRepo()
	svc, pub := newTestService(t, repo, gate)
	ctx := context.Background()

	issued, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(issued.Code) != 6 {
		t.Fatalf("expected 6-char code got %q", issued.Code)
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventNotificationRequested {
		t.Fatalf("expected notification event, got %+v", pub.events)
	}

	order, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: issued.Code})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if order.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered got %s", order.Status)
	}

	// Single consumption: the same code can never verify twice.
	_, err = svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: issued.Code})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCodeExpiredOrLocked {
		t.Fatalf("expected expired-or-locked got %v", err)
	}
}

func TestVerifyWrongCodeBurnsAttemptsThenLocks(t *testing.T) {
	sellerID := uuid.New()
	gate := &stubOrderGate{order: pickupOrder(sellerID)}
	repo := newStubCodesRepo()
	svc, _ := newTestService(t, repo, gate)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// First two misses report attempts remaining.
	for i := 0; i < 2; i++ {
		_, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: "WRONG1"})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("attempt %d: expected validation error got %v", i+1, err)
		}
	}
	// The third miss exhausts the budget.
	_, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: "WRONG1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCodeExpiredOrLocked {
		t.Fatalf("expected lock got %v", err)
	}
	// Locked stays locked even for the right code afterwards.
	_, err = svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: "WRONG1"})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCodeExpiredOrLocked {
		t.Fatalf("expected lock to persist got %v", err)
	}
	if gate.order.Status != enums.OrderStatusPreparing {
		t.Fatalf("order must not advance on failed verification")
	}
}

func TestFailedAttemptsSurviveRolledBackVerification(t *testing.T) {
	sellerID := uuid.New()
	gate := &stubOrderGate{order: pickupOrder(sellerID)}
	repo := newStubCodesRepo()
	pub := &stubOutboxPublisher{}
	svc, err := NewService(repo, gate, rollbackTxRunner{repo: repo}, pub, clock.Fixed(testNow), testHandoffConfig(), testCodeConfig())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	ctx := context.Background()

	issued, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// A rejected verification rolls its transaction back, but the burned
	// attempt must still be on the books afterwards.
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: "WRONG1"}); err == nil {
			t.Fatalf("attempt %d: wrong code must be rejected", i+1)
		}
	}
	for _, code := range repo.codes {
		if code.FailedAttempts != 3 {
			t.Fatalf("expected 3 recorded attempts got %d", code.FailedAttempts)
		}
	}

	// The budget is spent, so even the right code fails closed.
	_, err = svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: issued.Code})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCodeExpiredOrLocked {
		t.Fatalf("expected lock for the correct code got %v", err)
	}
	if gate.order.Status != enums.OrderStatusPreparing {
		t.Fatalf("order must not advance on a locked code")
	}
}

func TestVerifyExpiredCodeFailsClosed(t *testing.T) {
	sellerID := uuid.New()
	gate := &stubOrderGate{order: pickupOrder(sellerID)}
	repo := newStubCodesRepo()
	svc, _ := newTestService(t, repo, gate)
	ctx := context.Background()

	issued, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	// Age the stored code past the TTL.
	for _, code := range repo.codes {
		code.CreatedAt = testNow.Add(-25 * time.Hour)
	}

	_, err = svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: issued.Code})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCodeExpiredOrLocked {
		t.Fatalf("expected expired got %v", err)
	}
}

func TestReissueVoidsPreviousCode(t *testing.T) {
	sellerID := uuid.New()
	gate := &stubOrderGate{order: pickupOrder(sellerID)}
	repo := newStubCodesRepo()
	svc, _ := newTestService(t, repo, gate)
	ctx := context.Background()

	first, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID})
	if err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	second, err := svc.Generate(ctx, GenerateInput{OrderID: gate.order.ID, SellerID: sellerID})
	if err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	if first.Code == second.Code {
		t.Fatalf("re-issue must mint a fresh code")
	}

	// Only the latest code can verify; the old plaintext is dead.
	if _, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: first.Code}); err == nil {
		t.Fatalf("expected old code to fail")
	}
	if _, err := svc.Verify(ctx, VerifyInput{OrderID: gate.order.ID, SellerID: sellerID, Code: second.Code}); err != nil {
		t.Fatalf("new code should verify: %v", err)
	}
}

func TestGenerateRejectsShippingOrders(t *testing.T) {
	sellerID := uuid.New()
	order := pickupOrder(sellerID)
	order.DeliveryMethod = enums.DeliveryMethodShipping
	gate := &stubOrderGate{order: order}
	svc, _ := newTestService(t, newStubCodesRepo(), gate)

	_, err := svc.Generate(context.Background(), GenerateInput{OrderID: order.ID, SellerID: sellerID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestGenerateByNonSellerForbidden(t *testing.T) {
	gate := &stubOrderGate{order: pickupOrder(uuid.New())}
	svc, _ := newTestService(t, newStubCodesRepo(), gate)

	_, err := svc.Generate(context.Background(), GenerateInput{OrderID: gate.order.ID, SellerID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

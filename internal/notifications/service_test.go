package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type stubNotificationsRepo struct {
	rows map[uuid.UUID]*models.Notification
}

func newStubRepo() *stubNotificationsRepo {
	return &stubNotificationsRepo{rows: make(map[uuid.UUID]*models.Notification)}
}

func (s *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotificationsRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = testNow
	}
	copied := *n
	s.rows[n.ID] = &copied
	return nil
}

func (s *stubNotificationsRepo) FindNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *stubNotificationsRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int, cursor *pagination.Cursor) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubNotificationsRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	n, ok := s.rows[id]
	if !ok || n.ReadAt != nil {
		return 0, nil
	}
	n.ReadAt = &at
	return 1, nil
}

func (s *stubNotificationsRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var updated int64
	for _, n := range s.rows {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func newTestService(t *testing.T) (Service, *stubNotificationsRepo) {
	t.Helper()
	repo := newStubRepo()
	svc, err := NewService(repo, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}
	return svc, repo
}

func TestNotifyPersistsPayload(t *testing.T) {
	svc, repo := newTestService(t)
	userID := uuid.New()

	created, err := svc.Notify(context.Background(), NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderUpdate,
		Payload: map[string]string{"orderId": uuid.NewString()},
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	stored, ok := repo.rows[created.ID]
	if !ok {
		t.Fatalf("notification not stored")
	}
	if stored.UserID != userID || len(stored.Payload) == 0 {
		t.Fatalf("stored notification incomplete: %+v", stored)
	}
}

func TestNotifyRequiresUserAndType(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Notify(context.Background(), NotifyInput{Type: enums.NotificationTypeOrderUpdate}); err == nil {
		t.Fatalf("expected error for missing user")
	}
	if _, err := svc.Notify(context.Background(), NotifyInput{UserID: uuid.New()}); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestMarkReadIsScopedToOwner(t *testing.T) {
	svc, repo := newTestService(t)
	owner := uuid.New()

	created, err := svc.Notify(context.Background(), NotifyInput{UserID: owner, Type: enums.NotificationTypeWalletUpdate})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	err = svc.MarkRead(context.Background(), uuid.New(), created.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}

	if err := svc.MarkRead(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("owner mark read: %v", err)
	}
	if repo.rows[created.ID].ReadAt == nil {
		t.Fatalf("read_at not set")
	}
	// Second call is a no-op, not an error.
	if err := svc.MarkRead(context.Background(), owner, created.ID); err != nil {
		t.Fatalf("repeat mark read: %v", err)
	}
}

func TestMarkAllReadCountsUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.Notify(context.Background(), NotifyInput{UserID: userID, Type: enums.NotificationTypeOrderUpdate}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	updated, err := svc.MarkAllRead(context.Background(), userID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 3 {
		t.Fatalf("expected 3 updates got %d", updated)
	}
}

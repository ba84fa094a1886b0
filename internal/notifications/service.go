package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/internal/clock"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

// Service owns the in-app notification read model. Rows are written when a
// notification event is consumed; delivery is never on a request's critical
// path.
type Service interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	List(ctx context.Context, input ListInput) (*NotificationPage, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
}

// NewService wires the notifications service.
func NewService(repo Repository, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock required")
	}
	return &service{repo: repo, clock: clk}, nil
}

func (s *service) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification type required")
	}

	var payload json.RawMessage
	if input.Payload != nil {
		raw, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode payload")
		}
		payload = raw
	}

	notification := &models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Payload: payload,
	}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*NotificationPage, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	limit := pagination.NormalizeLimit(input.Limit)
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, input.UserID, input.UnreadOnly, pagination.LimitWithBuffer(limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := &NotificationPage{Notifications: rows}
	if len(rows) > limit {
		page.Notifications = rows[:limit]
		last := page.Notifications[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	notification, err := s.repo.FindNotificationByID(ctx, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "notification not found")
	}
	if notification.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "notification belongs to another user")
	}
	if notification.ReadAt != nil {
		return nil
	}
	if _, err := s.repo.MarkRead(ctx, notificationID, s.clock.Now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	updated, err := s.repo.MarkAllRead(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all read")
	}
	return updated, nil
}

package notifications

import (
	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

// NotifyInput creates an in-app notification for a user.
type NotifyInput struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Payload any
	Actor   *outbox.ActorRef
}

// ListInput pages a user's notifications, newest first.
type ListInput struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     string
}

// NotificationPage is one page of notifications plus the cursor for the next.
type NotificationPage struct {
	Notifications []models.Notification
	NextCursor    string
}

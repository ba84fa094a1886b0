package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/notifications"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Payload   any        `json:"payload,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func notificationToResponse(n models.Notification) notificationResponse {
	resp := notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if len(n.Payload) > 0 {
		resp.Payload = n.Payload
	}
	return resp
}

// NotificationList pages the caller's notifications, newest first.
func NotificationList(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), notifications.ListInput{
			UserID:     middleware.UserIDFromContext(r.Context()),
			UnreadOnly: validators.ParseQueryBool(r, "unreadOnly"),
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]notificationResponse, 0, len(page.Notifications))
		for _, n := range page.Notifications {
			items = append(items, notificationToResponse(n))
		}
		responses.WriteSuccess(w, map[string]any{
			"notifications": items,
			"nextCursor":    page.NextCursor,
		})
	}
}

// NotificationMarkRead marks one of the caller's notifications as read.
func NotificationMarkRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notificationID, err := urlParamUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

// NotificationMarkAllRead marks every unread notification as read.
func NotificationMarkAllRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updated, err := svc.MarkAllRead(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": updated})
	}
}

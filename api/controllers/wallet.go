package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/wallet"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type rechargeRequest struct {
	Amount string `json:"amount" validate:"required"`
	Method string `json:"method" validate:"required,oneof=card transfer cash"`
}

type movementResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func movementToResponse(m models.Movement) movementResponse {
	return movementResponse{
		ID:          m.ID,
		Type:        string(m.Type),
		Amount:      money.Format(m.Amount),
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// WalletBalance returns the caller's current balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{Balance: money.Format(balance)})
	}
}

// WalletRecharge tops up the caller's account.
func WalletRecharge(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rechargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		result, err := svc.Recharge(r.Context(), wallet.ApplyInput{
			UserID:      userID,
			Amount:      amount,
			Description: "recharge via " + strings.ToLower(req.Method),
			Actor:       &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"movement": movementToResponse(*result.Movement),
			"balance":  money.Format(result.Balance),
		})
	}
}

// WalletMovements pages the caller's movement history, newest first. The
// optional type query narrows the log to one movement kind.
func WalletMovements(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movementType, err := parseMovementType(r.URL.Query().Get("type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		page, err := svc.Movements(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, movementType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]movementResponse, 0, len(page.Movements))
		for _, m := range page.Movements {
			items = append(items, movementToResponse(m))
		}
		responses.WriteSuccess(w, map[string]any{
			"movements":  items,
			"nextCursor": page.NextCursor,
		})
	}
}

func parseMovementType(raw string) (*enums.MovementType, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	mt := enums.MovementType(trimmed)
	if !mt.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown movement type").WithDetails(map[string]string{"type": trimmed})
	}
	return &mt, nil
}

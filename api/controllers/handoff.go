package controllers

import (
	"net/http"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/handoff"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

type verifyHandoffRequest struct {
	Code string `json:"code" validate:"required,min=4,max=12"`
}

// HandoffGenerate issues a fresh pickup code for the order. The plaintext
// appears in this response and nowhere else.
func HandoffGenerate(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		result, err := svc.Generate(r.Context(), handoff.GenerateInput{
			OrderID:  orderID,
			SellerID: userID,
			Actor:    &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"orderId": result.OrderID.String(),
			"code":    result.Code,
		})
	}
}

// HandoffVerify checks one code attempt and completes the order on a match.
func HandoffVerify(svc handoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req verifyHandoffRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.Verify(r.Context(), handoff.VerifyInput{
			OrderID:  orderID,
			SellerID: userID,
			Code:     req.Code,
			Actor:    &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderToResponse(*order))
	}
}

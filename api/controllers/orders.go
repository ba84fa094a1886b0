package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/orders"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type createOrderRequest struct {
	ListingID       string  `json:"listingId" validate:"required,uuid"`
	Quantity        int     `json:"quantity,omitempty" validate:"omitempty,min=1,max=100"`
	DeliveryMethod  string  `json:"deliveryMethod" validate:"required,oneof=pickup shipping"`
	ShippingAddress *string `json:"shippingAddress,omitempty"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type setTrackingRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,max=100"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type orderResponse struct {
	ID              uuid.UUID  `json:"id"`
	ListingID       uuid.UUID  `json:"listingId"`
	BuyerID         uuid.UUID  `json:"buyerId"`
	SellerID        uuid.UUID  `json:"sellerId"`
	Quantity        int        `json:"quantity"`
	UnitPrice       string     `json:"unitPrice"`
	TotalPrice      string     `json:"totalPrice"`
	Status          string     `json:"status"`
	DeliveryMethod  string     `json:"deliveryMethod"`
	ShippingAddress *string    `json:"shippingAddress,omitempty"`
	TrackingNumber  *string    `json:"trackingNumber,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	ShippedAt       *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	RefundedAt      *time.Time `json:"refundedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func orderToResponse(o models.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		ListingID:       o.ListingID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		Quantity:        o.Quantity,
		UnitPrice:       money.Format(o.UnitPrice),
		TotalPrice:      money.Format(o.TotalPrice),
		Status:          string(o.Status),
		DeliveryMethod:  string(o.DeliveryMethod),
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		RefundedAt:      o.RefundedAt,
		CreatedAt:       o.CreatedAt,
	}
}

// OrderCreate starts an order for a listing the caller wants to buy.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := uuid.Parse(req.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			ListingID:       listingID,
			BuyerID:         userID,
			Quantity:        req.Quantity,
			DeliveryMethod:  enums.DeliveryMethod(req.DeliveryMethod),
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			Actor:           &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orderToResponse(*order))
	}
}

// OrderDetail returns one order visible to its buyer or seller.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if order.BuyerID != userID && order.SellerID != userID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, orderToResponse(*order))
	}
}

// OrderList pages the caller's orders as buyer or seller.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		filters := orders.OrderFilters{}
		switch strings.TrimSpace(r.URL.Query().Get("role")) {
		case "seller":
			filters.SellerID = &userID
		default:
			filters.BuyerID = &userID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			filters.Status = &status
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(page.Orders))
		for _, o := range page.Orders {
			items = append(items, orderToResponse(o))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":     items,
			"nextCursor": page.NextCursor,
		})
	}
}

func transitionHandler(logg *logger.Logger, run func(*http.Request, orders.TransitionInput) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		order, err := run(r, orders.TransitionInput{
			OrderID: orderID,
			ActorID: userID,
			Actor:   &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderToResponse(*order))
	}
}

// OrderPay settles the order from the buyer's wallet.
func OrderPay(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, input orders.TransitionInput) (*models.Order, error) {
		return svc.Pay(r.Context(), input)
	})
}

// OrderStartPreparing moves a paid order into preparation.
func OrderStartPreparing(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, input orders.TransitionInput) (*models.Order, error) {
		return svc.StartPreparing(r.Context(), input)
	})
}

// OrderMarkInTransit records the parcel as moving.
func OrderMarkInTransit(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, input orders.TransitionInput) (*models.Order, error) {
		return svc.MarkInTransit(r.Context(), input)
	})
}

// OrderMarkDelivered completes a shipping order from the buyer's side.
func OrderMarkDelivered(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, input orders.TransitionInput) (*models.Order, error) {
		return svc.MarkDelivered(r.Context(), input)
	})
}

// OrderSetTracking assigns the carrier reference and ships the order.
func OrderSetTracking(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setTrackingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.SetTracking(r.Context(), orders.SetTrackingInput{
			OrderID:        orderID,
			ActorID:        userID,
			TrackingNumber: req.TrackingNumber,
			Actor:          &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderToResponse(*order))
	}
}

func cancelStyleHandler(logg *logger.Logger, run func(*http.Request, orders.CancelInput) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := urlParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := run(r, orders.CancelInput{
			OrderID: orderID,
			ActorID: userID,
			Reason:  req.Reason,
			Actor:   &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderToResponse(*order))
	}
}

// OrderCancel aborts a pre-shipment order, refunding the buyer if needed.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelStyleHandler(logg, func(r *http.Request, input orders.CancelInput) (*models.Order, error) {
		return svc.Cancel(r.Context(), input)
	})
}

// OrderRefund reverses a delivered order's settlement.
func OrderRefund(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return cancelStyleHandler(logg, func(r *http.Request, input orders.CancelInput) (*models.Order, error) {
		return svc.Refund(r.Context(), input)
	})
}

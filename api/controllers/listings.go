package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/catalog"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

type createListingRequest struct {
	Title    string     `json:"title" validate:"required,max=200"`
	Category string     `json:"category" validate:"required,max=100"`
	Price    string     `json:"price" validate:"required"`
	Kind     string     `json:"kind" validate:"required,oneof=sale auction exchange gift"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

type setListingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active withdrawn sold expired"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type listingResponse struct {
	ID               uuid.UUID  `json:"id"`
	SellerID         uuid.UUID  `json:"sellerId"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Price            string     `json:"price"`
	Kind             string     `json:"kind"`
	Status           string     `json:"status"`
	EndsAt           *time.Time `json:"endsAt,omitempty"`
	CurrentBidAmount *string    `json:"currentBidAmount,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func listingToResponse(l models.Listing) listingResponse {
	resp := listingResponse{
		ID:        l.ID,
		SellerID:  l.SellerID,
		Title:     l.Title,
		Category:  l.Category,
		Price:     money.Format(l.Price),
		Kind:      string(l.Kind),
		Status:    string(l.Status),
		EndsAt:    l.EndsAt,
		CreatedAt: l.CreatedAt,
	}
	if l.CurrentBidAmount != nil {
		formatted := money.Format(*l.CurrentBidAmount)
		resp.CurrentBidAmount = &formatted
	}
	return resp
}

func urlParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").WithDetails(map[string]string{"param": key})
	}
	return id, nil
}

// ListingCreate publishes a new listing owned by the caller.
func ListingCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var price decimal.Decimal
		if req.Price != "" {
			parsed, err := money.Parse(req.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			price = parsed
		}

		userID := middleware.UserIDFromContext(r.Context())
		listing, err := svc.Create(r.Context(), catalog.CreateListingInput{
			SellerID: userID,
			Title:    req.Title,
			Category: req.Category,
			Price:    price,
			Kind:     enums.ListingKind(req.Kind),
			EndsAt:   req.EndsAt,
			Actor:    &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listingToResponse(*listing))
	}
}

// ListingDetail returns one listing by id.
func ListingDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Get(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listingToResponse(*listing))
	}
}

// ListingSetStatus lets the seller withdraw or re-activate a listing.
func ListingSetStatus(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setListingStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		err = svc.SetStatus(r.Context(), catalog.SetStatusInput{
			ListingID: listingID,
			ActorID:   userID,
			Status:    enums.ListingStatus(req.Status),
			Reason:    req.Reason,
			Actor:     &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": req.Status})
	}
}

// ListingList pages listings with optional filters.
func ListingList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := catalog.ListingFilters{}
		if sellerID, err := validators.ParseQueryUUID(r, "sellerId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if sellerID != uuid.Nil {
			filters.SellerID = &sellerID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind := enums.ListingKind(raw)
			filters.Kind = &kind
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.ListingStatus(raw)
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			filters.Category = &raw
		}

		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]listingResponse, 0, len(page.Listings))
		for _, l := range page.Listings {
			items = append(items, listingToResponse(l))
		}
		responses.WriteSuccess(w, map[string]any{
			"listings":   items,
			"nextCursor": page.NextCursor,
		})
	}
}

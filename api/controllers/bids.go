package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/auctions"
	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
	"github.com/mruizcampos/unimarket-backend/pkg/outbox"
)

type placeBidRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type acceptBidRequest struct {
	DeliveryMethod string `json:"deliveryMethod,omitempty" validate:"omitempty,oneof=pickup shipping"`
}

type bidResponse struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listingId"`
	BidderID  uuid.UUID `json:"bidderId"`
	Amount    string    `json:"amount"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"createdAt"`
}

func bidToResponse(b models.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    money.Format(b.Amount),
		Accepted:  b.Accepted,
		CreatedAt: b.CreatedAt,
	}
}

// BidPlace places a bid on an auction listing.
func BidPlace(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req placeBidRequest
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
		bid, err := svc.PlaceBid(r.Context(), auctions.PlaceBidInput{
			ListingID: listingID,
			BidderID:  userID,
			Amount:    amount,
			Actor:     &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bidToResponse(*bid))
	}
}

// BidHighest returns the current leading bid for a listing.
func BidHighest(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.HighestBid(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bidToResponse(*bid))
	}
}

// BidList returns the bids for a listing, highest first.
func BidList(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bids, err := svc.ListBids(r.Context(), listingID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]bidResponse, 0, len(bids))
		for _, b := range bids {
			items = append(items, bidToResponse(b))
		}
		responses.WriteSuccess(w, map[string]any{"bids": items})
	}
}

// BidAccept closes the auction on its highest bid and returns the order.
func BidAccept(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := urlParamUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req acceptBidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.AcceptHighestBid(r.Context(), auctions.AcceptInput{
			ListingID:      listingID,
			SellerID:       userID,
			DeliveryMethod: enums.DeliveryMethod(req.DeliveryMethod),
			Actor:          &outbox.ActorRef{UserID: userID, Role: "user"},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orderToResponse(*order))
	}
}

package controllers

import (
	"net/http"

	"github.com/mruizcampos/unimarket-backend/api/middleware"
	"github.com/mruizcampos/unimarket-backend/api/responses"
	"github.com/mruizcampos/unimarket-backend/api/validators"
	"github.com/mruizcampos/unimarket-backend/internal/stats"
	"github.com/mruizcampos/unimarket-backend/pkg/logger"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
)

type statsResponse struct {
	Min   string `json:"min"`
	Max   string `json:"max"`
	Mean  string `json:"mean"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

func statsToResponse(agg stats.EconomicStats) statsResponse {
	return statsResponse{
		Min:   money.Format(agg.Min),
		Max:   money.Format(agg.Max),
		Mean:  money.Format(agg.Mean),
		Total: money.Format(agg.Total),
		Count: agg.Count,
	}
}

func groupedToResponse(grouped stats.GroupedStats) map[string]statsResponse {
	out := make(map[string]statsResponse, len(grouped))
	for key, agg := range grouped {
		out[key] = statsToResponse(agg)
	}
	return out
}

func parsePeriod(r *http.Request) (stats.Period, error) {
	start, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return stats.Period{}, err
	}
	end, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return stats.Period{}, err
	}
	return stats.Period{Start: start, End: end}, nil
}

// WalletStats aggregates the caller's movements over an optional period.
func WalletStats(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := parsePeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		movementType, err := parseMovementType(r.URL.Query().Get("type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agg, err := svc.MovementStats(r.Context(), stats.MovementStatsInput{
			UserID: middleware.UserIDFromContext(r.Context()),
			Type:   movementType,
			Period: period,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statsToResponse(agg))
	}
}

// SalesByCategory aggregates settled order totals per listing category.
func SalesByCategory(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := parsePeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		grouped, err := svc.SalesByCategory(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groupedToResponse(grouped))
	}
}

// SalesBySeller aggregates settled order totals per seller.
func SalesBySeller(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := parsePeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		grouped, err := svc.SalesBySeller(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groupedToResponse(grouped))
	}
}

package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/mruizcampos/unimarket-backend/pkg/errors"
	"github.com/mruizcampos/unimarket-backend/pkg/money"
)

// Service computes economic aggregates for wallets and sales.
type Service interface {
	MovementStats(ctx context.Context, input MovementStatsInput) (EconomicStats, error)
	SalesByCategory(ctx context.Context, period Period) (GroupedStats, error)
	SalesBySeller(ctx context.Context, period Period) (GroupedStats, error)
}

type service struct {
	repo Repository
}

// NewService wires the statistics service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &service{repo: repo}, nil
}

// Aggregate folds a slice of amounts into a single EconomicStats. Empty input
// yields a zero aggregate with Count 0, never an error. Mean is rounded
// half-up to two decimal places; min, max and total are returned exact.
func Aggregate(values []decimal.Decimal, periodStart, periodEnd time.Time) EconomicStats {
	agg := EconomicStats{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	if len(values) == 0 {
		return agg
	}

	agg.Min = values[0]
	agg.Max = values[0]
	for _, v := range values {
		if v.LessThan(agg.Min) {
			agg.Min = v
		}
		if v.GreaterThan(agg.Max) {
			agg.Max = v
		}
		agg.Total = agg.Total.Add(v)
	}
	agg.Count = len(values)
	agg.Mean = money.RoundDisplay(agg.Total.Div(decimal.NewFromInt(int64(agg.Count))))
	return agg
}

// AggregateGrouped folds keyed rows into per-key aggregates in a single pass.
func AggregateGrouped(rows []GroupedAmount, periodStart, periodEnd time.Time) GroupedStats {
	buckets := make(map[string][]decimal.Decimal)
	for _, row := range rows {
		buckets[row.Key] = append(buckets[row.Key], row.Amount)
	}
	grouped := make(GroupedStats, len(buckets))
	for key, values := range buckets {
		grouped[key] = Aggregate(values, periodStart, periodEnd)
	}
	return grouped
}

func (s *service) MovementStats(ctx context.Context, input MovementStatsInput) (EconomicStats, error) {
	if input.UserID == uuid.Nil {
		return EconomicStats{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	amounts, err := s.repo.MovementAmounts(ctx, input.UserID, input.Type, input.Period)
	if err != nil {
		return EconomicStats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movement amounts")
	}
	return Aggregate(amounts, input.Period.Start, input.Period.End), nil
}

func (s *service) SalesByCategory(ctx context.Context, period Period) (GroupedStats, error) {
	rows, err := s.repo.SalesByCategory(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales by category")
	}
	return AggregateGrouped(rows, period.Start, period.End), nil
}

func (s *service) SalesBySeller(ctx context.Context, period Period) (GroupedStats, error) {
	rows, err := s.repo.SalesBySeller(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales by seller")
	}
	return AggregateGrouped(rows, period.Start, period.End), nil
}

package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// Period bounds a query window. A zero Start or End leaves that side open.
type Period struct {
	Start time.Time
	End   time.Time
}

// EconomicStats is a derived aggregate over a set of amounts. It is computed
// on demand and never persisted.
type EconomicStats struct {
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
	Mean        decimal.Decimal `json:"mean"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
	PeriodStart time.Time       `json:"periodStart"`
	PeriodEnd   time.Time       `json:"periodEnd"`
}

// GroupedStats maps a grouping key (category name, seller id) to its aggregate.
type GroupedStats map[string]EconomicStats

// GroupedAmount is one row of the read model: a group key and one amount.
type GroupedAmount struct {
	Key    string
	Amount decimal.Decimal
}

// MovementStatsInput selects which movements to aggregate.
type MovementStatsInput struct {
	UserID uuid.UUID
	Type   *enums.MovementType
	Period Period
}

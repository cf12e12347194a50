// Package reorder turns forecast demand and current stock into restock
// recommendations. Everything here is a pure function of its inputs.
package reorder

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/google/uuid"

	"retail-ops/internal/domain"
)

type Urgency string

const (
	UrgencyRed    Urgency = "red"
	UrgencyYellow Urgency = "yellow"
	UrgencyGreen  Urgency = "green"
)

func (u Urgency) rank() int {
	switch u {
	case UrgencyRed:
		return 0
	case UrgencyYellow:
		return 1
	default:
		return 2
	}
}

// Policy holds the global reorder thresholds.
type Policy struct {
	RedDays     float64
	YellowDays  float64
	SafetyStock int
	HorizonDays int
}

func DefaultPolicy() Policy {
	return Policy{
		RedDays:     2,
		YellowDays:  5,
		SafetyStock: 5,
		HorizonDays: 7,
	}
}

// Validate checks the policy is internally consistent.
func (p Policy) Validate() error {
	switch {
	case p.HorizonDays <= 0:
		return domain.NewValidationError("horizon_days", "must be positive")
	case p.RedDays < 0 || p.YellowDays < p.RedDays:
		return domain.NewValidationError("urgency_days", "need 0 <= red (%v) <= yellow (%v)", p.RedDays, p.YellowDays)
	case p.SafetyStock < 0:
		return domain.NewValidationError("safety_stock", "must not be negative")
	}
	return nil
}

// Input is one product's stock position and forecast demand over the horizon.
type Input struct {
	ProductID     uuid.UUID
	ProductName   string
	Category      string
	SupplierID    *uuid.UUID
	CurrentStock  int
	SafetyStock   int
	ForecastTotal float64
}

// Recommendation is derived on demand and never stored.
type Recommendation struct {
	ProductID           uuid.UUID  `json:"product_id"`
	ProductName         string     `json:"product_name"`
	Category            string     `json:"category"`
	SupplierID          *uuid.UUID `json:"supplier_id,omitempty"`
	CurrentStock        int        `json:"current_stock"`
	Forecast7DayTotal   float64    `json:"forecast_7day_total"`
	DailyDemand         float64    `json:"daily_demand"`
	DaysUntilStockout   float64    `json:"-"`
	UrgencyStatus       Urgency    `json:"urgency_status"`
	SafetyStock         int        `json:"safety_stock"`
	RecommendedOrderQty int        `json:"recommended_order_qty"`
}

// MarshalJSON renders an infinite stockout horizon as null.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type plain Recommendation
	var days *float64
	if !math.IsInf(r.DaysUntilStockout, 1) {
		d := math.Round(r.DaysUntilStockout*10) / 10
		days = &d
	}
	return json.Marshal(struct {
		plain
		DaysUntilStockout *float64 `json:"days_until_stockout"`
	}{plain: plain(r), DaysUntilStockout: days})
}

func (r Recommendation) Actionable() bool {
	return r.RecommendedOrderQty > 0
}

// Classify maps days of cover to an urgency.
func (p Policy) Classify(days float64) Urgency {
	switch {
	case days <= p.RedDays:
		return UrgencyRed
	case days <= p.YellowDays:
		return UrgencyYellow
	default:
		return UrgencyGreen
	}
}

// Evaluate computes the recommendation for a single product.
func (p Policy) Evaluate(in Input) (Recommendation, error) {
	if in.CurrentStock < 0 {
		return Recommendation{}, domain.NewValidationError("current_stock", "must not be negative for product %s", in.ProductID)
	}
	if in.ForecastTotal < 0 || math.IsNaN(in.ForecastTotal) || math.IsInf(in.ForecastTotal, 0) {
		return Recommendation{}, domain.NewValidationError("forecast_total", "must be a finite non-negative number for product %s", in.ProductID)
	}

	daily := in.ForecastTotal / float64(p.HorizonDays)
	days := math.Inf(1)
	if daily > 0 {
		days = float64(in.CurrentStock) / daily
	}

	safety := in.SafetyStock
	if safety <= 0 {
		safety = p.SafetyStock
	}

	qty := int(math.Ceil(in.ForecastTotal + float64(safety) - float64(in.CurrentStock)))
	if qty < 0 {
		qty = 0
	}

	return Recommendation{
		ProductID:           in.ProductID,
		ProductName:         in.ProductName,
		Category:            in.Category,
		SupplierID:          in.SupplierID,
		CurrentStock:        in.CurrentStock,
		Forecast7DayTotal:   in.ForecastTotal,
		DailyDemand:         daily,
		DaysUntilStockout:   days,
		UrgencyStatus:       p.Classify(days),
		SafetyStock:         safety,
		RecommendedOrderQty: qty,
	}, nil
}

// EvaluateAll evaluates every input and sorts the result red first, then by
// days until stockout.
func (p Policy) EvaluateAll(inputs []Input) ([]Recommendation, error) {
	recs := make([]Recommendation, 0, len(inputs))
	for _, in := range inputs {
		rec, err := p.Evaluate(in)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	Sort(recs)
	return recs, nil
}

func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.UrgencyStatus.rank() != b.UrgencyStatus.rank() {
			return a.UrgencyStatus.rank() < b.UrgencyStatus.rank()
		}
		return a.DaysUntilStockout < b.DaysUntilStockout
	})
}

// Actionable keeps only recommendations with something to order.
func Actionable(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Actionable() {
			out = append(out, r)
		}
	}
	return out
}

// Package forecast consumes the external demand forecasting service.
package forecast

import (
	"context"

	"github.com/google/uuid"
)

// StockLevel is what the forecaster is told about each product.
type StockLevel struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Category     string    `json:"category"`
	CurrentStock int       `json:"current_stock"`
}

type DailyPrediction struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"predicted_quantity"`
	Revenue  float64 `json:"forecasted_revenue"`
}

// ProductForecast is the per-day series predicted for one product.
type ProductForecast struct {
	ProductID   uuid.UUID
	ProductName string
	Days        []DailyPrediction
}

// Total sums predicted quantity over the first horizon days.
func (f ProductForecast) Total(horizon int) float64 {
	total := 0.0
	for i, day := range f.Days {
		if i >= horizon {
			break
		}
		total += day.Quantity
	}
	return total
}

// Provider returns forecasts keyed by product id. Products the provider has
// no opinion on are omitted.
type Provider interface {
	Forecast(ctx context.Context, days int, stock []StockLevel) (map[uuid.UUID]ProductForecast, error)
}

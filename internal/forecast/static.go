package forecast

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Static predicts a fixed daily quantity per product. Products without an
// entry get DefaultDaily.
type Static struct {
	Daily        map[uuid.UUID]float64
	DefaultDaily float64
}

func (s *Static) Forecast(ctx context.Context, days int, stock []StockLevel) (map[uuid.UUID]ProductForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now().UTC().AddDate(0, 0, 1)
	result := make(map[uuid.UUID]ProductForecast, len(stock))
	for _, level := range stock {
		qty, ok := s.Daily[level.ProductID]
		if !ok {
			qty = s.DefaultDaily
		}
		f := ProductForecast{ProductID: level.ProductID, ProductName: level.ProductName}
		for d := 0; d < days; d++ {
			f.Days = append(f.Days, DailyPrediction{
				Date:     start.AddDate(0, 0, d).Format("2006-01-02"),
				Quantity: qty,
			})
		}
		result[level.ProductID] = f
	}
	return result, nil
}

package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPClient calls the forecasting service's generate endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type generateRequest struct {
	NumDays  int          `json:"num_days"`
	Products []StockLevel `json:"products"`
}

type generateRow struct {
	Date        string  `json:"date"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"predicted_quantity"`
	Revenue     float64 `json:"forecasted_revenue"`
}

type generateResponse struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error"`
	Forecast []generateRow `json:"forecast"`
}

func (c *HTTPClient) Forecast(ctx context.Context, days int, stock []StockLevel) (map[uuid.UUID]ProductForecast, error) {
	body, err := json.Marshal(generateRequest{NumDays: days, Products: stock})
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/forecast/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("forecast service error: %s", decoded.Error)
	}

	result := group(decoded.Forecast, stock)
	c.logger.Debug("Forecast received",
		zap.Int("rows", len(decoded.Forecast)),
		zap.Int("products", len(result)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// group assigns rows to products by id, falling back to the product name for
// rows the service returned without an id.
func group(rows []generateRow, stock []StockLevel) map[uuid.UUID]ProductForecast {
	byName := make(map[string]uuid.UUID, len(stock))
	for _, s := range stock {
		byName[strings.ToLower(s.ProductName)] = s.ProductID
	}

	result := make(map[uuid.UUID]ProductForecast)
	for _, row := range rows {
		id, err := uuid.Parse(row.ProductID)
		if err != nil {
			var ok bool
			id, ok = byName[strings.ToLower(row.ProductName)]
			if !ok {
				continue
			}
		}
		f := result[id]
		f.ProductID = id
		if f.ProductName == "" {
			f.ProductName = row.ProductName
		}
		f.Days = append(f.Days, DailyPrediction{Date: row.Date, Quantity: row.Quantity, Revenue: row.Revenue})
		result[id] = f
	}
	return result
}

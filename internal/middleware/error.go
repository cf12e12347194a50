package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"retail-ops/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error codes that are not plain HTTP status texts.
const (
	CodeValidation             = "validation_error"
	CodeNotFound               = "not_found"
	CodeStockConflict          = "stock_conflict"
	CodeStateConflict          = "state_conflict"
	CodePaymentDeclined        = "payment_declined"
	CodeReconciliationRequired = "payment_reconciliation_required"
	CodeInternal               = "internal_error"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithErrorDetails(w, statusCode, http.StatusText(statusCode), message, nil)
}

// respondWithErrorDetails sends a structured error response with additional details
func respondWithErrorDetails(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	respondWithErrorDetails(w, http.StatusBadRequest, CodeValidation, "validation failed", details)
}

// RespondWithDomainError maps an error from the core to its HTTP status and
// envelope. Reconciliation is checked first because it wraps the commit
// failure that caused it.
func RespondWithDomainError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	var (
		recErr      *domain.PaymentReconciliationError
		stockErr    *domain.StockConflictError
		stateErr    *domain.StateConflictError
		declinedErr *domain.PaymentDeclinedError
		validErr    *domain.ValidationError
	)

	switch {
	case errors.As(err, &recErr):
		details := map[string]interface{}{"gateway_reference": recErr.GatewayReference}
		if recErr.ReconciliationID != uuid.Nil {
			details["reconciliation_id"] = recErr.ReconciliationID
		}
		respondWithErrorDetails(w, http.StatusBadGateway, CodeReconciliationRequired,
			"payment was captured but the order could not be completed; it has been flagged for manual resolution", details)

	case errors.As(err, &stockErr):
		respondWithErrorDetails(w, http.StatusConflict, CodeStockConflict, err.Error(),
			map[string]interface{}{"items": stockErr.Items})

	case errors.As(err, &stateErr):
		respondWithErrorDetails(w, http.StatusConflict, CodeStateConflict, err.Error(),
			map[string]interface{}{"current_status": stateErr.Current, "required_status": stateErr.Required})

	case errors.As(err, &declinedErr):
		respondWithErrorDetails(w, http.StatusPaymentRequired, CodePaymentDeclined, declinedErr.Reason, nil)

	case errors.As(err, &validErr):
		var details map[string]interface{}
		if len(validErr.Details) > 0 {
			details = map[string]interface{}{"issues": validErr.Details}
		}
		respondWithErrorDetails(w, http.StatusBadRequest, CodeValidation, validErr.Error(), details)

	case errors.Is(err, domain.ErrValidation):
		respondWithErrorDetails(w, http.StatusBadRequest, CodeValidation, err.Error(), nil)

	case errors.Is(err, domain.ErrNotFound):
		respondWithErrorDetails(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)

	default:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithErrorDetails(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					respondWithErrorDetails(w, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

package liquidity

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

// Router for liquidity endpoints
func Router(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Method("GET", "/quotes", middleware.InstrumentHandler("GetLiquidityQuotes", GetQuotes(service)))
	r.Method("GET", "/quotes/{quoteID}", middleware.InstrumentHandler("GetLiquidityQuote", GetQuote(service)))
	r.Method("POST", "/quotes/{quoteID}/execute", middleware.InstrumentHandler("ExecuteLiquidityQuote", ExecuteQuote(service)))
	return r
}

// GetQuotes is the handler for pricing a corridor across providers
func GetQuotes(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		query := r.URL.Query()

		from := strings.ToUpper(query.Get("from_currency"))
		if len(from) != 3 {
			return handlers.FieldValidationError("from_currency must be a 3 letter ISO code", "from_currency")
		}
		to := strings.ToUpper(query.Get("to_currency"))
		if len(to) != 3 {
			return handlers.FieldValidationError("to_currency must be a 3 letter ISO code", "to_currency")
		}
		if from == to {
			return handlers.FieldValidationError("to_currency must differ from from_currency", "to_currency")
		}

		amount, err := decimal.NewFromString(query.Get("amount"))
		if err != nil {
			return handlers.FieldValidationError("amount must be a decimal number", "amount")
		}
		if !amount.IsPositive() {
			return handlers.FieldValidationError("amount must be greater than zero", "amount")
		}

		method := payments.MethodPVP
		if raw := query.Get("settlement_method"); raw != "" {
			method, err = payments.ParseSettlementMethod(raw)
			if err != nil {
				return handlers.FieldValidationError(err.Error(), "settlement_method")
			}
		}

		maxSources := defaultMaxSources
		if raw := query.Get("max_sources"); raw != "" {
			maxSources, err = strconv.Atoi(raw)
			if err != nil || maxSources < 1 || maxSources > maxSourcesLimit {
				return handlers.FieldValidationError("max_sources must be between 1 and 5", "max_sources")
			}
		}

		resp, err := service.GetQuotes(r.Context(), from, to, amount, method, maxSources)
		if err != nil {
			if errors.Is(err, ErrNoQuotes) {
				return handlers.CodedError(err, handlers.ExternalServiceErrorCode,
					"no liquidity provider returned a quote for the corridor")
			}
			return handlers.WrapError(err, "Error generating quotes", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetQuote is the handler for reading a live quote
func GetQuote(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var quoteID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), quoteID, chi.URLParam(r, "quoteID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"quoteID": err.Error(),
			})
		}

		quote, err := service.GetQuote(r.Context(), *quoteID.UUID())
		if err != nil {
			if errors.Is(err, errorutils.ErrNotFound) {
				return handlers.CodedError(nil, handlers.NotFoundCode, "quote not found")
			}
			return handlers.WrapError(err, "Error getting quote", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), quote, w, http.StatusOK)
	})
}

// ExecuteQuote is the handler for consuming a quote
func ExecuteQuote(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var quoteID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), quoteID, chi.URLParam(r, "quoteID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"quoteID": err.Error(),
			})
		}

		result, err := service.ExecuteQuote(r.Context(), *quoteID.UUID())
		if err != nil {
			switch {
			case errors.Is(err, errorutils.ErrNotFound):
				return handlers.CodedError(nil, handlers.NotFoundCode, "quote not found")
			case errors.Is(err, errorutils.ErrExpired):
				return handlers.CodedError(nil, handlers.PaymentExpiredCode, "quote validity window has lapsed")
			default:
				return handlers.WrapError(err, "Error executing quote", http.StatusInternalServerError)
			}
		}

		return handlers.RenderContent(r.Context(), result, w, http.StatusOK)
	})
}

package report

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/go-chi/chi"
)

// Router for report endpoints
func Router(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Method("GET", "/proof-of-reserves", middleware.InstrumentHandler("GetProofOfReserves", GetProofOfReserves(service)))
	r.Method("GET", "/proof-of-settlement", middleware.InstrumentHandler("GetProofOfSettlement", GetProofOfSettlement(service)))
	r.Method("GET", "/transactions", middleware.InstrumentHandler("GetTransactionReport", GetTransactionReport(service)))
	r.Method("GET", "/compliance", middleware.InstrumentHandler("GetComplianceReport", GetComplianceReport(service)))
	return r
}

// GetProofOfReserves is the handler for attesting reserves against liabilities
func GetProofOfReserves(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		resp, err := service.GenerateProofOfReserves(r.Context())
		if err != nil {
			return handlers.WrapError(err, "Error generating proof of reserves", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetProofOfSettlement is the handler for reconstructing one day of settlement
func GetProofOfSettlement(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		day := time.Now().UTC().Truncate(24 * time.Hour)
		if raw := r.URL.Query().Get("settlement_date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return handlers.FieldValidationError("settlement_date must be formatted YYYY-MM-DD", "settlement_date")
			}
			day = parsed
		}

		resp, err := service.GenerateProofOfSettlement(r.Context(), day)
		if err != nil {
			return handlers.WrapError(err, "Error generating proof of settlement", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetTransactionReport is the handler for listing payments over a period
func GetTransactionReport(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		query := r.URL.Query()

		end := time.Now().UTC().Truncate(24 * time.Hour)
		start := end.AddDate(0, 0, -transactionLookbackDays)
		if raw := query.Get("start_date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return handlers.FieldValidationError("start_date must be formatted YYYY-MM-DD", "start_date")
			}
			start = parsed
		}
		if raw := query.Get("end_date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return handlers.FieldValidationError("end_date must be formatted YYYY-MM-DD", "end_date")
			}
			end = parsed
		}
		if end.Before(start) {
			return handlers.FieldValidationError("end_date must not precede start_date", "end_date")
		}

		var status payments.TransactionStatus
		if raw := query.Get("status"); raw != "" {
			parsed, err := payments.ParseTransactionStatus(raw)
			if err != nil {
				return handlers.FieldValidationError(err.Error(), "status")
			}
			status = parsed
		}

		currency := strings.ToUpper(query.Get("currency"))
		if currency != "" && len(currency) != 3 {
			return handlers.FieldValidationError("currency must be a 3 letter ISO code", "currency")
		}

		// optional paging, ?page=0&items=50&order=amount.desc
		ctx, pagination, err := inputs.NewPagination(r.Context(), r.URL.String(), new(TransactionRow))
		if err != nil {
			var appErr *handlers.AppError
			if errors.As(err, &appErr) {
				return appErr
			}
			return handlers.WrapValidationError(err)
		}

		resp, err := service.GetTransactionReport(ctx, start, end, status, currency, pagination)
		if err != nil {
			return handlers.WrapError(err, "Error generating transaction report", http.StatusInternalServerError)
		}

		return handlers.RenderContent(ctx, resp, w, http.StatusOK)
	})
}

// GetComplianceReport is the handler for the regulatory period summary
func GetComplianceReport(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		query := r.URL.Query()

		periodEnd := time.Now().UTC().Truncate(24 * time.Hour)
		periodStart := periodEnd.AddDate(0, 0, -complianceLookbackDays)
		if raw := query.Get("start_date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return handlers.FieldValidationError("start_date must be formatted YYYY-MM-DD", "start_date")
			}
			periodStart = parsed
		}
		if raw := query.Get("end_date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return handlers.FieldValidationError("end_date must be formatted YYYY-MM-DD", "end_date")
			}
			periodEnd = parsed
		}
		if periodEnd.Before(periodStart) {
			return handlers.FieldValidationError("end_date must not precede start_date", "end_date")
		}

		resp, err := service.GenerateComplianceReport(r.Context(), periodStart, periodEnd)
		if err != nil {
			return handlers.CodedError(err, handlers.ComplianceCheckFailedCode,
				"Error generating compliance report")
		}

		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

package payment

import (
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"
	appctx "github.com/corridor-intl/rail-go/libs/context"
	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/libs/payments"
	"github.com/corridor-intl/rail-go/libs/requestutils"
	"github.com/go-chi/chi"
)

// Router for payment endpoints. The idempotency middleware guards initiate,
// a repeated key within the ttl replays the first recorded response.
func Router(service *Service, idempotency func(next http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Method("POST", "/initiate", idempotency(middleware.InstrumentHandler("InitiatePayment", InitiatePayment(service))))
	r.Method("GET", "/{transactionID}/status", middleware.InstrumentHandler("GetPaymentStatus", GetPaymentStatus(service)))
	r.Method("POST", "/{transactionID}/cancel", middleware.InstrumentHandler("CancelPayment", CancelPayment(service)))
	return r
}

// InitiatePayment is the handler for accepting a new payment instruction
func InitiatePayment(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var req InitiateRequest
		err := requestutils.ReadJSON(r.Context(), r.Body, &req)
		if err != nil {
			return handlers.CodedError(err, handlers.ValidationErrorCode, "Error in request body")
		}

		_, err = govalidator.ValidateStruct(req)
		if err != nil {
			return handlers.WrapValidationError(err)
		}
		if !req.Amount.IsPositive() {
			return handlers.FieldValidationError("amount must be greater than zero", "amount")
		}
		if len(req.Currency) != 3 {
			return handlers.FieldValidationError("currency must be a 3 letter ISO code", "currency")
		}

		purpose := payments.CategoryTrade
		if req.PaymentPurpose != "" {
			purpose, err = payments.ParsePaymentCategory(req.PaymentPurpose)
			if err != nil {
				return handlers.FieldValidationError(err.Error(), "payment_purpose")
			}
		}
		method := payments.MethodPVP
		if req.SettlementMethod != "" {
			method, err = payments.ParseSettlementMethod(req.SettlementMethod)
			if err != nil {
				return handlers.FieldValidationError(err.Error(), "settlement_method")
			}
		}

		raw, _ := r.Context().Value(appctx.IdempotencyKeyCTXKey).(string)
		key, err := inputs.NewIdempotencyKey(r.Context(), raw)
		if err != nil {
			return handlers.CodedError(err, handlers.InvalidIdempotencyKeyCode,
				"Idempotency-Key must be a valid v4 UUID")
		}

		created, _, err := service.InitiatePayment(r.Context(), &Payment{
			Amount:           req.Amount,
			Currency:         req.Currency,
			DebtorAccount:    req.DebtorAccount,
			CreditorAccount:  req.CreditorAccount,
			PaymentPurpose:   purpose,
			SettlementMethod: method,
			IdempotencyKey:   key.UUID(),
		})
		if err != nil {
			return handlers.WrapError(err, "Error initiating payment", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), &InitiateResponse{
			TransactionID: created.TransactionID,
			UETR:          created.UETR,
			Status:        created.Status,
			Timestamp:     created.CreatedAt,
			Message:       "payment accepted for processing",
		}, w, http.StatusCreated)
	})
}

// GetPaymentStatus is the handler for following a payment through the pipeline
func GetPaymentStatus(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var transactionID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), transactionID, chi.URLParam(r, "transactionID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"transactionID": err.Error(),
			})
		}

		resp, err := service.GetPaymentStatus(r.Context(), *transactionID.UUID())
		if err != nil {
			if errors.Is(err, errorutils.ErrNotFound) {
				return handlers.CodedError(nil, handlers.NotFoundCode, "payment not found")
			}
			return handlers.WrapError(err, "Error getting payment status", http.StatusInternalServerError)
		}

		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// CancelPayment is the handler for withdrawing a payment before settlement
func CancelPayment(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var transactionID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), transactionID, chi.URLParam(r, "transactionID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"transactionID": err.Error(),
			})
		}

		cancelled, err := service.CancelPayment(r.Context(), *transactionID.UUID())
		if err != nil {
			switch {
			case errors.Is(err, errorutils.ErrNotFound):
				return handlers.CodedError(nil, handlers.NotFoundCode, "payment not found")
			case errors.Is(err, errorutils.ErrConflict):
				return handlers.CodedError(nil, handlers.PaymentCancelledCode,
					"payment has already settled and cannot be cancelled")
			default:
				return handlers.WrapError(err, "Error cancelling payment", http.StatusInternalServerError)
			}
		}

		return handlers.RenderContent(r.Context(), &CancelResponse{
			TransactionID: cancelled.TransactionID,
			Status:        cancelled.Status,
			CancelledAt:   cancelled.UpdatedAt,
		}, w, http.StatusOK)
	})
}

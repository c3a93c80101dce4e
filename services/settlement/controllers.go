package settlement

import (
	"errors"
	"net/http"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/go-chi/chi"
)

// Router for settlement endpoints
func Router(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Method("POST", "/close-batch", middleware.OperatorAuthorizedOnly(
		middleware.InstrumentHandler("CloseSettlementBatch", CloseBatch(service))))
	r.Method("GET", "/status", middleware.InstrumentHandler("GetSettlementStatus", GetStatus(service)))
	r.Method("GET", "/batches/{batchID}", middleware.InstrumentHandler("GetSettlementBatch", GetBatch(service)))
	return r
}

// CloseBatch is the handler for closing the current settlement window
func CloseBatch(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		window, err := ParseWindow(r.URL.Query().Get("window"))
		if err != nil {
			return handlers.FieldValidationError(err.Error(), "window")
		}

		resp, err := service.CloseBatch(r.Context(), window)
		if err != nil {
			return handlers.CodedError(err, handlers.SettlementFailedCode, "Failed to close settlement batch")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetStatus is the handler for the settlement backlog and batch history
func GetStatus(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		resp, err := service.GetStatus(r.Context())
		if err != nil {
			return handlers.CodedError(err, handlers.SettlementFailedCode, "Failed to get settlement status")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetBatch is the handler for one batch and the payments it claimed
func GetBatch(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var batchID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), batchID, chi.URLParam(r, "batchID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"batchID": err.Error(),
			})
		}

		resp, err := service.GetBatch(r.Context(), *batchID.UUID())
		if err != nil {
			if errors.Is(err, errorutils.ErrNotFound) {
				return handlers.CodedError(nil, handlers.NotFoundCode, "batch not found")
			}
			return handlers.CodedError(err, handlers.SettlementFailedCode, "Failed to get batch details")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

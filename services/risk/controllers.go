package risk

import (
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"
	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/handlers"
	"github.com/corridor-intl/rail-go/libs/inputs"
	"github.com/corridor-intl/rail-go/libs/middleware"
	"github.com/corridor-intl/rail-go/libs/requestutils"
	"github.com/go-chi/chi"
)

// Router for risk endpoints
func Router(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Method("GET", "/mode", middleware.InstrumentHandler("GetRiskMode", GetMode(service)))
	r.Method("POST", "/mode", middleware.OperatorAuthorizedOnly(
		middleware.InstrumentHandler("SetRiskMode", SetMode(service))))
	r.Method("GET", "/metrics", middleware.InstrumentHandler("GetRiskMetrics", GetMetrics(service)))
	r.Method("POST", "/assess/{transactionID}", middleware.InstrumentHandler("AssessTransaction", AssessTransaction(service)))
	r.Method("GET", "/thresholds", middleware.InstrumentHandler("GetRiskThresholds", GetThresholds()))
	return r
}

// GetMode is the handler for reading the active risk posture
func GetMode(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		resp, err := service.GetMode(r.Context())
		if err != nil {
			return handlers.CodedError(err, handlers.RiskAssessmentFailedCode, "Failed to get risk mode")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// SetMode is the handler for switching the risk posture
func SetMode(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var req SetModeRequest
		err := requestutils.ReadJSON(r.Context(), r.Body, &req)
		if err != nil {
			return handlers.CodedError(err, handlers.ValidationErrorCode, "Error in request body")
		}

		_, err = govalidator.ValidateStruct(req)
		if err != nil {
			return handlers.WrapValidationError(err)
		}
		mode, err := ParseMode(req.Mode)
		if err != nil {
			return handlers.FieldValidationError(err.Error(), "mode")
		}
		autoEscalation := true
		if req.AutoEscalation != nil {
			autoEscalation = *req.AutoEscalation
		}

		resp, err := service.SetMode(r.Context(), mode, req.Reason, autoEscalation)
		if err != nil {
			return handlers.CodedError(err, handlers.RiskAssessmentFailedCode, "Failed to set risk mode")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetMetrics is the handler for the market metrics and composite score
func GetMetrics(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		metrics, err := service.GetMetrics(r.Context())
		if err != nil {
			return handlers.CodedError(err, handlers.RiskAssessmentFailedCode, "Failed to compute risk metrics")
		}
		return handlers.RenderContent(r.Context(), metrics, w, http.StatusOK)
	})
}

// AssessTransaction is the handler for scoring a single payment
func AssessTransaction(service *Service) handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		var transactionID = new(inputs.ID)
		if err := inputs.DecodeAndValidateString(r.Context(), transactionID, chi.URLParam(r, "transactionID")); err != nil {
			return handlers.ValidationError("request url parameter", map[string]interface{}{
				"transactionID": err.Error(),
			})
		}

		resp, err := service.AssessTransaction(r.Context(), *transactionID.UUID())
		if err != nil {
			if errors.Is(err, errorutils.ErrNotFound) {
				return handlers.CodedError(nil, handlers.NotFoundCode, "transaction not found")
			}
			return handlers.CodedError(err, handlers.RiskAssessmentFailedCode, "Failed to assess transaction")
		}
		return handlers.RenderContent(r.Context(), resp, w, http.StatusOK)
	})
}

// GetThresholds is the handler for the full static threshold table
func GetThresholds() handlers.AppHandler {
	return handlers.AppHandler(func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
		return handlers.RenderContent(r.Context(), AllThresholds(), w, http.StatusOK)
	})
}

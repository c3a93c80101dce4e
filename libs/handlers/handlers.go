package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/corridor-intl/rail-go/libs/requestutils"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// ErrorCode is the wire tag identifying a failure class
type ErrorCode string

const (
	// ValidationErrorCode - malformed or semantically invalid input
	ValidationErrorCode ErrorCode = "VALIDATION_ERROR"
	// MissingIdempotencyKeyCode - POST arrived without an Idempotency-Key header
	MissingIdempotencyKeyCode ErrorCode = "MISSING_IDEMPOTENCY_KEY"
	// InvalidIdempotencyKeyCode - Idempotency-Key header is not a UUID
	InvalidIdempotencyKeyCode ErrorCode = "INVALID_IDEMPOTENCY_KEY"
	// InvalidAmountCode - amount failed domain checks
	InvalidAmountCode ErrorCode = "INVALID_AMOUNT"
	// InvalidAccountCode - account identifier failed domain checks
	InvalidAccountCode ErrorCode = "INVALID_ACCOUNT"
	// InsufficientFundsCode - debtor lacks cover for the instruction
	InsufficientFundsCode ErrorCode = "INSUFFICIENT_FUNDS"
	// TravelRuleViolationCode - originator/beneficiary data incomplete for threshold
	TravelRuleViolationCode ErrorCode = "TRAVEL_RULE_VIOLATION"
	// IncompleteKYCCode - participant KYC record incomplete
	IncompleteKYCCode ErrorCode = "INCOMPLETE_KYC"
	// UnauthorizedCode - caller is not authenticated
	UnauthorizedCode ErrorCode = "UNAUTHORIZED"
	// ForbiddenCode - caller is authenticated but not allowed
	ForbiddenCode ErrorCode = "FORBIDDEN"
	// RiskThresholdExceededCode - instruction breaches the active risk mode
	RiskThresholdExceededCode ErrorCode = "RISK_THRESHOLD_EXCEEDED"
	// HighRiskTransactionCode - scoring flagged the instruction as high risk
	HighRiskTransactionCode ErrorCode = "HIGH_RISK_TRANSACTION"
	// SanctionsViolationCode - sanctions screening hit
	SanctionsViolationCode ErrorCode = "SANCTIONS_VIOLATION"
	// PEPViolationCode - politically exposed person screening hit
	PEPViolationCode ErrorCode = "PEP_VIOLATION"
	// NotFoundCode - the resource does not exist
	NotFoundCode ErrorCode = "NOT_FOUND"
	// ConflictCode - the resource state conflicts with the request
	ConflictCode ErrorCode = "CONFLICT"
	// PaymentCancelledCode - the payment is settled or completed and cannot change
	PaymentCancelledCode ErrorCode = "PAYMENT_CANCELLED"
	// DuplicatePaymentCode - an instruction with this idempotency key already exists
	DuplicatePaymentCode ErrorCode = "DUPLICATE_PAYMENT"
	// BatchClosedCode - the settlement batch is closed and immutable
	BatchClosedCode ErrorCode = "BATCH_CLOSED"
	// PaymentExpiredCode - the quote or instruction validity window lapsed
	PaymentExpiredCode ErrorCode = "PAYMENT_EXPIRED"
	// RateLimitedCode - caller exceeded the request budget
	RateLimitedCode ErrorCode = "RATE_LIMITED"
	// SettlementFailedCode - the settlement transaction failed
	SettlementFailedCode ErrorCode = "SETTLEMENT_FAILED"
	// NettingErrorCode - net position computation failed conservation checks
	NettingErrorCode ErrorCode = "NETTING_ERROR"
	// RiskAssessmentFailedCode - scoring could not complete
	RiskAssessmentFailedCode ErrorCode = "RISK_ASSESSMENT_FAILED"
	// ComplianceCheckFailedCode - compliance aggregation could not complete
	ComplianceCheckFailedCode ErrorCode = "COMPLIANCE_CHECK_FAILED"
	// InternalErrorCode - unclassified server failure
	InternalErrorCode ErrorCode = "INTERNAL_ERROR"
	// ExternalServiceErrorCode - a collaborator returned garbage or nothing
	ExternalServiceErrorCode ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// NetworkErrorCode - a collaborator was unreachable
	NetworkErrorCode ErrorCode = "NETWORK_ERROR"
	// LiquidityUnavailableCode - no provider can serve the corridor right now
	LiquidityUnavailableCode ErrorCode = "LIQUIDITY_UNAVAILABLE"
	// TimeoutErrorCode - a collaborator exceeded its deadline
	TimeoutErrorCode ErrorCode = "TIMEOUT_ERROR"
)

var errorCodeStatus = map[ErrorCode]int{
	ValidationErrorCode:       http.StatusBadRequest,
	MissingIdempotencyKeyCode: http.StatusBadRequest,
	InvalidIdempotencyKeyCode: http.StatusBadRequest,
	InvalidAmountCode:         http.StatusBadRequest,
	InvalidAccountCode:        http.StatusBadRequest,
	InsufficientFundsCode:     http.StatusBadRequest,
	TravelRuleViolationCode:   http.StatusBadRequest,
	IncompleteKYCCode:         http.StatusBadRequest,
	UnauthorizedCode:          http.StatusUnauthorized,
	ForbiddenCode:             http.StatusForbidden,
	RiskThresholdExceededCode: http.StatusForbidden,
	HighRiskTransactionCode:   http.StatusForbidden,
	SanctionsViolationCode:    http.StatusForbidden,
	PEPViolationCode:          http.StatusForbidden,
	NotFoundCode:              http.StatusNotFound,
	ConflictCode:              http.StatusConflict,
	PaymentCancelledCode:      http.StatusConflict,
	DuplicatePaymentCode:      http.StatusConflict,
	BatchClosedCode:           http.StatusConflict,
	PaymentExpiredCode:        http.StatusGone,
	RateLimitedCode:           http.StatusTooManyRequests,
	SettlementFailedCode:      http.StatusInternalServerError,
	NettingErrorCode:          http.StatusInternalServerError,
	RiskAssessmentFailedCode:  http.StatusInternalServerError,
	ComplianceCheckFailedCode: http.StatusInternalServerError,
	InternalErrorCode:         http.StatusInternalServerError,
	ExternalServiceErrorCode:  http.StatusBadGateway,
	NetworkErrorCode:          http.StatusBadGateway,
	LiquidityUnavailableCode:  http.StatusServiceUnavailable,
	TimeoutErrorCode:          http.StatusGatewayTimeout,
}

// Status returns the default HTTP status for the code
func (c ErrorCode) Status() int {
	if status, ok := errorCodeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError is error type for json HTTP responses
type AppError struct {
	Cause         error       `json:"-"`
	ErrorCode     ErrorCode   `json:"-"` // wire tag, defaults to INTERNAL_ERROR
	Message       string      `json:"-"` // description of failure
	Code          int         `json:"-"` // http status code
	Data          interface{} `json:"-"` // application specific details
	TransactionID string      `json:"-"`
	TraceID       string      `json:"-"`
}

// Error makes app error an error
func (e *AppError) Error() string {
	msg := "error: " + e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}

	return msg
}

// MarshalJSON renders the wire envelope
func (e *AppError) MarshalJSON() ([]byte, error) {
	type errorBody struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	code := e.ErrorCode
	if code == "" {
		code = InternalErrorCode
	}
	return json.Marshal(struct {
		Error         errorBody `json:"error"`
		TransactionID string    `json:"transaction_id,omitempty"`
		TraceID       string    `json:"trace_id,omitempty"`
	}{
		Error: errorBody{
			Code:    code,
			Message: e.Message,
			Details: e.Data,
		},
		TransactionID: e.TransactionID,
		TraceID:       e.TraceID,
	})
}

// ServeHTTP responds according to the passed AppError
func (e *AppError) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := e.Code
	if code == 0 {
		code = e.ErrorCode.Status()
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		panic(err)
	}
}

// CodedError builds an AppError for the given wire tag
func CodedError(cause error, code ErrorCode, msg string) *AppError {
	return &AppError{
		Cause:     cause,
		ErrorCode: code,
		Message:   msg,
		Code:      code.Status(),
	}
}

// WrapError with an additional message as an AppError
func WrapError(err error, msg string, passedCode int) *AppError {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		code := passedCode
		if code == 0 {
			code = http.StatusBadRequest
		}
		// use defaults passed in
		return &AppError{
			Cause:   err,
			Message: msg,
			Code:    code,
		}
	}
	code := appErr.Code
	if code == 0 {
		code = passedCode
	}
	if len(msg) != 0 {
		msg = fmt.Sprintf("%s: ", msg)
	}
	return &AppError{
		Cause:         appErr.Cause,
		ErrorCode:     appErr.ErrorCode,
		Message:       fmt.Sprintf("%s%s", msg, appErr.Message),
		Code:          code,
		Data:          appErr.Data,
		TransactionID: appErr.TransactionID,
		TraceID:       appErr.TraceID,
	}
}

// RenderContent based on the header
func RenderContent(ctx context.Context, v interface{}, w http.ResponseWriter, status int) *AppError {
	switch w.Header().Get("content-type") {
	case "application/json":
		var b bytes.Buffer

		if err := json.NewEncoder(&b).Encode(v); err != nil {
			return WrapError(err, "Error encoding JSON", http.StatusInternalServerError)
		}

		w.WriteHeader(status)
		_, err := w.Write(b.Bytes())
		// Should never happen :fingers_crossed:
		if err != nil {
			return WrapError(err, "Error writing a response", http.StatusInternalServerError)
		}
	}

	return nil
}

// WrapValidationError from govalidator
func WrapValidationError(err error) *AppError {
	return ValidationError("request body", govalidator.ErrorsByField(err))
}

// ValidationError creates an error to communicate a bad request was formed
func ValidationError(message string, validationErrors interface{}) *AppError {
	return &AppError{
		ErrorCode: ValidationErrorCode,
		Message:   "Error validating " + message,
		Code:      http.StatusBadRequest,
		Data: map[string]interface{}{
			"validationErrors": validationErrors,
		},
	}
}

// FieldValidationError creates a validation error naming the offending field
func FieldValidationError(message, field string) *AppError {
	return &AppError{
		ErrorCode: ValidationErrorCode,
		Message:   message,
		Code:      http.StatusBadRequest,
		Data: map[string]string{
			"field": field,
		},
	}
}

// AppHandler is an http.Handler with JSON requests / responses
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// ServeHTTP responds via the passed handler and handles returned errors
func (fn AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "*/*") || r.Header.Get("Accept") == "" {
		w.Header().Set("content-type", "application/json")
	} else {
		w.WriteHeader(http.StatusBadRequest)
		// return a 400 error here as we cannot supply the encoding type the client is asking for
	}

	if e := fn(w, r); e != nil {
		if e.TraceID == "" {
			e.TraceID = requestutils.GetRequestID(r.Context())
		}

		if e.Code >= 500 && e.Code <= 599 {
			sentry.WithScope(func(scope *sentry.Scope) {
				tags := map[string]string{
					"reqID": requestutils.GetRequestID(r.Context()),
				}
				if corrID := requestutils.GetCorrelationID(r.Context()); corrID != "" {
					tags["correlationID"] = corrID
				}
				scope.SetTags(tags)
				sentry.CaptureException(e)
			})
		}

		l := zerolog.Ctx(r.Context())
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Err(e)
		})

		// causes stay in the log for 5xx, never on the wire
		if e.Cause != nil && e.Code < 500 {
			e.Message = fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}

		e.ServeHTTP(w, r)
	}
}

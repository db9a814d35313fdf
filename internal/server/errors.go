package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	warrantydomain "github.com/smallbiznis/warranty/internal/warranty/domain"
	"gorm.io/gorm"
)

const (
	typeValidation  = "validation_error"
	typeNotFound    = "not_found"
	typeRateLimited = "rate_limited"
	typeUnavailable = "service_unavailable"
	typeInternal    = "internal_error"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors is returned by handlers that reject input before it
// reaches the warranty service.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// errorRule maps a sentinel to its HTTP shape. Validation rules also name the
// offending field.
type errorRule struct {
	target  error
	status  int
	typ     string
	field   string
	message string
}

var errorRules = []errorRule{
	{ErrInvalidRequest, http.StatusBadRequest, typeValidation, "request", "invalid request"},
	{warrantydomain.ErrInvalidJobTotal, http.StatusBadRequest, typeValidation, "job_total", "job total must be a positive, finite amount"},
	{warrantydomain.ErrInvalidJobReference, http.StatusBadRequest, typeValidation, "job_reference", "job reference must be 1 to 128 characters"},
	{warrantydomain.ErrInvalidPolicy, http.StatusBadRequest, typeValidation, "policy", "unknown recommendation policy"},
	{warrantydomain.ErrInvalidID, http.StatusBadRequest, typeValidation, "id", "malformed quote id"},

	{warrantydomain.ErrUnknownTier, http.StatusNotFound, typeNotFound, "", "unknown warranty tier"},
	{warrantydomain.ErrNotFound, http.StatusNotFound, typeNotFound, "", "not found"},
	{ErrNotFound, http.StatusNotFound, typeNotFound, "", "not found"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, typeNotFound, "", "not found"},

	{ErrRateLimited, http.StatusTooManyRequests, typeRateLimited, "", "too many requests"},
	{warrantydomain.ErrRenderUnavailable, http.StatusServiceUnavailable, typeUnavailable, "", "quote rendering is unavailable"},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, typeUnavailable, "", "service unavailable"},
}

// ErrorHandlingMiddleware renders the last handler error as JSON unless the
// handler already wrote a body.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if last := c.Errors.Last(); last != nil {
			status, payload := mapError(last.Err)
			c.AbortWithStatusJSON(status, errorResponse{Error: payload})
		}
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", ErrInvalidRequest.Error(), "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	var verr *ValidationErrors
	if errors.As(err, &verr) && verr != nil {
		return http.StatusBadRequest, errorPayload{Type: typeValidation, Message: "validation error", Errors: verr.Errors}
	}

	if err != nil {
		for _, rule := range errorRules {
			if !errors.Is(err, rule.target) {
				continue
			}
			if rule.typ != typeValidation {
				return rule.status, errorPayload{Type: rule.typ, Message: rule.message}
			}
			return rule.status, errorPayload{
				Type:    typeValidation,
				Message: "validation error",
				Errors:  []ValidationError{{Field: rule.field, Code: rule.target.Error(), Message: rule.message}},
			}
		}
	}

	return http.StatusInternalServerError, errorPayload{Type: typeInternal, Message: "internal server error"}
}

// classifyErrorForLog returns the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// APIError is the body of every error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retry_after_ms,omitempty"`
}

// ErrorResponse is the envelope written by the helpers below.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeAllocatorUnavailable = "ALLOCATOR_UNAVAILABLE"
	ErrCodeSynthesisFailed      = "SYNTHESIS_FAILED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeCircuitOpen          = "CIRCUIT_OPEN"
)

// allocatorRetry is the hint sent when the id store cannot be reached.
const allocatorRetry = 5 * time.Second

// Abort writes e with status and stops the handler chain. A retry hint is
// mirrored into the Retry-After header in whole seconds.
func Abort(c *gin.Context, status int, e APIError) {
	if e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa((e.RetryAfter+999)/1000))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: e})
}

// RespondError sends a structured error response
func RespondError(c *gin.Context, status int, code string, message string) {
	Abort(c, status, APIError{Code: code, Message: message})
}

// RespondErrorWithDetails sends a structured error response with details
func RespondErrorWithDetails(c *gin.Context, status int, code string, message string, details string) {
	Abort(c, status, APIError{Code: code, Message: message, Details: details})
}

// RespondErrorWithRetry sends a structured error response with a retry hint
func RespondErrorWithRetry(c *gin.Context, status int, code string, message string, retryAfter time.Duration) {
	Abort(c, status, APIError{Code: code, Message: message, RetryAfter: int(retryAfter.Milliseconds())})
}

func BadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	RespondError(c, http.StatusForbidden, ErrCodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

func InternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// SynthesisFailed reports a creature whose documents could not be built.
func SynthesisFailed(c *gin.Context, details string) {
	RespondErrorWithDetails(c, http.StatusInternalServerError, ErrCodeSynthesisFailed, "document synthesis failed", details)
}

// AllocatorUnavailable reports that no id could be drawn. The breaker counts
// these responses.
func AllocatorUnavailable(c *gin.Context) {
	RespondErrorWithRetry(c, http.StatusServiceUnavailable, ErrCodeAllocatorUnavailable, "id allocator is temporarily unavailable", allocatorRetry)
}

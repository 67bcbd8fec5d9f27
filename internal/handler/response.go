package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidRideType),
		errors.Is(err, service.ErrInvalidScheduleTime),
		errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest

	// Conflict errors - the resource moved on, or the caller lost a race
	case errors.Is(err, service.ErrRideNoLongerAvailable),
		errors.Is(err, service.ErrOfferExpiredOrMissing),
		errors.Is(err, service.ErrOfferAlreadyHandled),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRideStateChanged),
		errors.Is(err, service.ErrRideNotRequestable),
		errors.Is(err, service.ErrMatchRoundsExhausted),
		errors.Is(err, service.ErrRideNotCompleted),
		errors.Is(err, service.ErrPaymentAlreadySettled),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrDriverNotVerified),
		errors.Is(err, service.ErrDriverSuspended):
		return http.StatusForbidden

	// Payment errors
	case errors.Is(err, service.ErrChargeFailed):
		return http.StatusPaymentRequired

	// Rate limiting
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests

	// Service unavailable
	case errors.Is(err, service.ErrNoDriversAvailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

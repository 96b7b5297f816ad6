package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ocelon/parking/internal/auth/token"
	"github.com/ocelon/parking/internal/billing"
	ledgerdomain "github.com/ocelon/parking/internal/ledger/domain"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	paymentdomain "github.com/ocelon/parking/internal/payment/domain"
	plandomain "github.com/ocelon/parking/internal/plan/domain"
	sessiondomain "github.com/ocelon/parking/internal/session/domain"
	supportdomain "github.com/ocelon/parking/internal/support/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
)

// apiError is the wire shape every failed request resolves to.
type apiError struct {
	status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrUnauthorized       = &apiError{status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden          = &apiError{status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	ErrNotFound           = &apiError{status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests    = &apiError{status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
	ErrServiceUnavailable = &apiError{status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *apiError {
	return &apiError{status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// errorStatus maps domain errors onto the error taxonomy: validation 400,
// auth 401/403, missing 404, conflicts and capacity 409, everything else 500.
func errorStatus(err error) (int, string) {
	switch {
	// not found
	case errors.Is(err, lotdomain.ErrNotFound),
		errors.Is(err, sessiondomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, supportdomain.ErrNotFound):
		return http.StatusNotFound, err.Error()

	// conflict: wrong-state transitions and capacity
	case errors.Is(err, sessiondomain.ErrNotActive),
		errors.Is(err, sessiondomain.ErrNotPaid),
		errors.Is(err, lotdomain.ErrLotFull),
		errors.Is(err, lotdomain.ErrLotInactive),
		errors.Is(err, supportdomain.ErrInvalidTransition),
		errors.Is(err, supportdomain.ErrTicketClosed),
		errors.Is(err, userdomain.ErrEmailTaken):
		return http.StatusConflict, err.Error()

	// auth
	case errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, token.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, userdomain.ErrAccountInactive),
		errors.Is(err, paymentdomain.ErrNotSessionUser):
		return http.StatusForbidden, err.Error()

	// validation
	case errors.Is(err, lotdomain.ErrInvalidID),
		errors.Is(err, lotdomain.ErrInvalidName),
		errors.Is(err, lotdomain.ErrInvalidAddress),
		errors.Is(err, lotdomain.ErrInvalidCapacity),
		errors.Is(err, lotdomain.ErrInvalidRate),
		errors.Is(err, lotdomain.ErrInvalidLocation),
		errors.Is(err, lotdomain.ErrOccupancyBounds),
		errors.Is(err, sessiondomain.ErrInvalidID),
		errors.Is(err, sessiondomain.ErrInvalidPlates),
		errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidTaxInfo),
		errors.Is(err, plandomain.ErrUnknownPlan),
		errors.Is(err, plandomain.ErrInvalidUser),
		errors.Is(err, userdomain.ErrInvalidID),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrMissingName),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, userdomain.ErrInvalidStatus),
		errors.Is(err, userdomain.ErrInvalidResetToken),
		errors.Is(err, supportdomain.ErrInvalidID),
		errors.Is(err, supportdomain.ErrMissingSubject),
		errors.Is(err, supportdomain.ErrMissingCategory),
		errors.Is(err, supportdomain.ErrMissingBody),
		errors.Is(err, supportdomain.ErrInvalidAuthor),
		errors.Is(err, billing.ErrUnratedLot),
		errors.Is(err, billing.ErrInvalidHours),
		errors.Is(err, billing.ErrInvalidTaxRate),
		errors.Is(err, billing.ErrInvalidDiscount),
		errors.Is(err, ledgerdomain.ErrUnbalancedEntry):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal_error"
}

// AbortWithError terminates the request with the envelope the original API
// exposed: {"success": false, "error": {...}}.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.status, gin.H{"success": false, "error": api})
		return
	}

	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   apiError{Code: code, Message: message},
	})
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

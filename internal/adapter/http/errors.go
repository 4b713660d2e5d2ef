package http

import (
	"errors"
	"net/http"

	"credit-acceleration/internal/domain/apperr"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var statusByCode = map[string]int{
	"validation_error":             http.StatusUnprocessableEntity,
	"not_found":                    http.StatusNotFound,
	"invalid_transition":           http.StatusConflict,
	"invalid_state":                http.StatusConflict,
	"invalid_amount":               http.StatusUnprocessableEntity,
	"concurrency_conflict":         http.StatusConflict,
	"external_service_unavailable": http.StatusServiceUnavailable,
	"limit_exceeded":               http.StatusConflict,
	"assessment_in_progress":       http.StatusConflict,
	"insufficient_balance":         http.StatusUnprocessableEntity,
	"claim_not_approved":           http.StatusConflict,
	"guarantee_expired":            http.StatusConflict,
}

// HTTPStatus maps an error from the usecases to a response status.
func HTTPStatus(err error) int {
	if s, ok := statusByCode[apperr.Code(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeError renders err as ErrorResponse. Errors outside the taxonomy are
// logged and reported without their text.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	code := apperr.Code(err)
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Code: "http_error"})
		}
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(status, ErrorResponse{Error: "internal error", Code: code})
	}
	if apperr.Retryable(err) {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// bindAndValidate returns a non-nil response error when the body is not
// usable, so handlers can `return` it directly.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: "bad_request"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation_error",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

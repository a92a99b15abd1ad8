// Package handler holds the Echo handlers of the public API and the admin
// back office.  Handlers bind and shape HTTP; every rule lives in the
// service package.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/avstage-backoffice/internal/service"
)

// respondError maps service errors onto status codes.  Anything unexpected
// is logged here and answered with a generic 500.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	var (
		ve *service.ValidationError
		te *service.TransitionError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "field": ve.Field, "message": ve.Message})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed"})
	case errors.Is(err, service.ErrUnauthorised):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorised"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &te):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid transition", "from": te.From, "to": te.To})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid transition"})
	case errors.Is(err, service.ErrDuplicateEntry):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests, please try again later"})
	case errors.Is(err, service.ErrNotification):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification could not be sent"})
	case errors.Is(err, service.ErrPersistence):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong, please try again"})
	}
	log.ErrorContext(c.Request().Context(), "unhandled error",
		slog.String("method", c.Request().Method), slog.String("path", c.Path()), slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong, please try again"})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
}

// page reads limit and offset query parameters.  Out-of-range values are
// clamped by the repositories.
func page(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/avstage-backoffice/internal/middleware"
	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/pricing"
	"github.com/iliyamo/avstage-backoffice/internal/service"
)

// Submissions is the public write surface.
type Submissions interface {
	SubmitBooking(ctx context.Context, in service.BookingInput, identity string) (string, error)
	SubmitContact(ctx context.Context, in service.ContactInput, identity string) (string, error)
	Subscribe(ctx context.Context, in service.SubscribeInput, identity string) (*model.Subscriber, error)
	Unsubscribe(ctx context.Context, email, identity string) error
	AllowSubmission(ctx context.Context, identity string) bool
}

// Calculator prices a quote without storing it.
type Calculator interface {
	Preview(in service.PreviewInput) (pricing.Totals, error)
}

// PublicHandler serves the unauthenticated endpoints used by the website.
type PublicHandler struct {
	gw   Submissions
	calc Calculator
	log  *slog.Logger
}

// NewPublicHandler wires a PublicHandler.
func NewPublicHandler(gw Submissions, calc Calculator, log *slog.Logger) *PublicHandler {
	return &PublicHandler{gw: gw, calc: calc, log: log}
}

// SubmitBooking handles POST /v1/bookings.
func (h *PublicHandler) SubmitBooking(c echo.Context) error {
	var in service.BookingInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ref, err := h.gw.SubmitBooking(c.Request().Context(), in, middleware.ClientIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "reference": ref})
}

// SubmitContact handles POST /v1/contact.
func (h *PublicHandler) SubmitContact(c echo.Context) error {
	var in service.ContactInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	ref, err := h.gw.SubmitContact(c.Request().Context(), in, middleware.ClientIdentity(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "reference": ref})
}

// Subscribe handles POST /v1/newsletter.
func (h *PublicHandler) Subscribe(c echo.Context) error {
	var in service.SubscribeInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	if _, err := h.gw.Subscribe(c.Request().Context(), in, middleware.ClientIdentity(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}

// Unsubscribe handles POST /v1/newsletter/unsubscribe.
func (h *PublicHandler) Unsubscribe(c echo.Context) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c)
	}
	if err := h.gw.Unsubscribe(c.Request().Context(), body.Email, middleware.ClientIdentity(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Catalog handles GET /v1/catalog/services.
func (h *PublicHandler) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"services": model.Catalog})
}

// PreviewQuote handles POST /v1/quotes/preview.
func (h *PublicHandler) PreviewQuote(c echo.Context) error {
	var in service.PreviewInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	totals, err := h.calc.Preview(in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, totals)
}

// Probe handles GET /v1/ratelimit/probe.  It spends one unit of the
// caller's submission allowance.
func (h *PublicHandler) Probe(c echo.Context) error {
	allowed := h.gw.AllowSubmission(c.Request().Context(), middleware.ClientIdentity(c))
	return c.JSON(http.StatusOK, echo.Map{"allowed": allowed})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/avstage-backoffice/internal/middleware"
	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/service"
)

// Bookings is the admin booking surface.
type Bookings interface {
	Get(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int, error)
	Transition(ctx context.Context, id string, target model.BookingStatus, actor string, opts service.TransitionOptions) (*model.Booking, error)
	Reschedule(ctx context.Context, id string, in service.RescheduleInput, actor string) (*model.Booking, error)
	UpdateDetails(ctx context.Context, id string, upd service.DetailsUpdate, actor string) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Resend(ctx context.Context, id string, event model.NotificationEvent, actor string) (*model.Booking, error)
}

// BookingHandler serves /v1/admin/bookings.
type BookingHandler struct {
	svc Bookings
	log *slog.Logger
}

// NewBookingHandler wires a BookingHandler.
func NewBookingHandler(svc Bookings, log *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// bookingView adds the statuses an admin may move the booking to.
type bookingView struct {
	*model.Booking
	NextStatuses []model.BookingStatus `json:"next_statuses"`
}

func view(b *model.Booking) bookingView {
	return bookingView{Booking: b, NextStatuses: service.NextStatuses(b.Status)}
}

// List handles GET /bookings?status=&q=&limit=&offset=.
func (h *BookingHandler) List(c echo.Context) error {
	limit, offset := page(c)
	f := model.BookingFilter{
		Status: model.BookingStatus(c.QueryParam("status")),
		Search: c.QueryParam("q"),
		Limit:  limit,
		Offset: offset,
	}
	items, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(b))
}

type transitionRequest struct {
	Status  model.BookingStatus `json:"status"`
	Reason  string              `json:"reason"`
	NewDate string              `json:"new_date"`
	NewTime string              `json:"new_time"`
}

// Transition handles POST /bookings/:id/transition.
func (h *BookingHandler) Transition(c echo.Context) error {
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	b, err := h.svc.Transition(c.Request().Context(), c.Param("id"), req.Status, middleware.Actor(c), service.TransitionOptions{
		Reason:  req.Reason,
		NewDate: req.NewDate,
		NewTime: req.NewTime,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(b))
}

// Reschedule handles POST /bookings/:id/reschedule.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	var in service.RescheduleInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	b, err := h.svc.Reschedule(c.Request().Context(), c.Param("id"), in, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(b))
}

// UpdateDetails handles PATCH /bookings/:id.
func (h *BookingHandler) UpdateDetails(c echo.Context) error {
	var upd service.DetailsUpdate
	if err := c.Bind(&upd); err != nil {
		return badBody(c)
	}
	b, err := h.svc.UpdateDetails(c.Request().Context(), c.Param("id"), upd, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(b))
}

// Delete handles DELETE /bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Resend handles POST /bookings/:id/resend.
func (h *BookingHandler) Resend(c echo.Context) error {
	var req struct {
		Event model.NotificationEvent `json:"event"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	b, err := h.svc.Resend(c.Request().Context(), c.Param("id"), req.Event, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, view(b))
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// Inbox is the admin surface for contact messages and newsletter numbers.
type Inbox interface {
	List(ctx context.Context, f model.MessageFilter) ([]model.ContactMessage, int, error)
	Open(ctx context.Context, id string) (*model.ContactMessage, error)
	SetStatus(ctx context.Context, id string, status model.MessageStatus) (*model.ContactMessage, error)
	SetNotes(ctx context.Context, id, notes string) (*model.ContactMessage, error)
	Delete(ctx context.Context, id string) error
	SubscriberCounts(ctx context.Context) (map[model.SubscriberStatus]int, error)
}

// InboxHandler serves /v1/admin/messages and /v1/admin/newsletter.
type InboxHandler struct {
	svc Inbox
	log *slog.Logger
}

// NewInboxHandler wires an InboxHandler.
func NewInboxHandler(svc Inbox, log *slog.Logger) *InboxHandler {
	return &InboxHandler{svc: svc, log: log}
}

func (h *InboxHandler) List(c echo.Context) error {
	limit, offset := page(c)
	items, total, err := h.svc.List(c.Request().Context(), model.MessageFilter{
		Status: model.MessageStatus(c.QueryParam("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// Open returns the message and marks it read.
func (h *InboxHandler) Open(c echo.Context) error {
	m, err := h.svc.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *InboxHandler) SetStatus(c echo.Context) error {
	var req struct {
		Status model.MessageStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	m, err := h.svc.SetStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *InboxHandler) SetNotes(c echo.Context) error {
	var req struct {
		AdminNotes string `json:"admin_notes"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	m, err := h.svc.SetNotes(c.Request().Context(), c.Param("id"), req.AdminNotes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *InboxHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// NewsletterStats handles GET /newsletter/stats.
func (h *InboxHandler) NewsletterStats(c echo.Context) error {
	counts, err := h.svc.SubscriberCounts(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"confirmed":    counts[model.SubscriberConfirmed],
		"unsubscribed": counts[model.SubscriberUnsubscribed],
	})
}

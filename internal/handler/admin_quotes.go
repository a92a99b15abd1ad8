package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/avstage-backoffice/internal/model"
	"github.com/iliyamo/avstage-backoffice/internal/service"
)

// Quotes is the admin quote surface.
type Quotes interface {
	Create(ctx context.Context, in service.QuoteInput) (*model.Quote, error)
	Update(ctx context.Context, id string, in service.QuoteInput) (*model.Quote, error)
	UpdateStatus(ctx context.Context, id string, status model.QuoteStatus) (*model.Quote, error)
	Get(ctx context.Context, id string) (*model.Quote, error)
	List(ctx context.Context, status model.QuoteStatus, limit, offset int) ([]model.Quote, error)
	Delete(ctx context.Context, id string) error
}

// QuoteHandler serves /v1/admin/quotes.
type QuoteHandler struct {
	svc Quotes
	log *slog.Logger
}

// NewQuoteHandler wires a QuoteHandler.
func NewQuoteHandler(svc Quotes, log *slog.Logger) *QuoteHandler {
	return &QuoteHandler{svc: svc, log: log}
}

func (h *QuoteHandler) List(c echo.Context) error {
	limit, offset := page(c)
	items, err := h.svc.List(c.Request().Context(), model.QuoteStatus(c.QueryParam("status")), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *QuoteHandler) Create(c echo.Context) error {
	var in service.QuoteInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	q, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, q)
}

func (h *QuoteHandler) Get(c echo.Context) error {
	q, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *QuoteHandler) Update(c echo.Context) error {
	var in service.QuoteInput
	if err := c.Bind(&in); err != nil {
		return badBody(c)
	}
	q, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *QuoteHandler) UpdateStatus(c echo.Context) error {
	var req struct {
		Status model.QuoteStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	q, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *QuoteHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Package router registers the HTTP routes of the service on an Echo
// instance.
package router

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/avstage-backoffice/internal/config"
	"github.com/iliyamo/avstage-backoffice/internal/handler"
	"github.com/iliyamo/avstage-backoffice/internal/middleware"
	"github.com/iliyamo/avstage-backoffice/internal/ratelimit"
)

// Deps are the handlers and infrastructure the routes are built from.
type Deps struct {
	Public   *handler.PublicHandler
	Bookings *handler.BookingHandler
	Quotes   *handler.QuoteHandler
	Inbox    *handler.InboxHandler
	DB       handler.Pinger

	Limiter      ratelimit.Limiter
	GlobalLimit  int
	GlobalWindow time.Duration

	Redis *redis.Client
	Cache config.CacheConfig
	JWT   config.JWTConfig
	Log   *slog.Logger
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
}

// RegisterPublic registers the unauthenticated /v1 endpoints.  All of them
// sit behind the global per-client limit; the submission forms add their own
// stricter limits in the gateway.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1", middleware.RateLimit(d.Limiter, d.GlobalLimit, d.GlobalWindow))

	g.POST("/bookings", d.Public.SubmitBooking)
	g.POST("/contact", d.Public.SubmitContact)
	g.POST("/newsletter", d.Public.Subscribe)
	g.POST("/newsletter/unsubscribe", d.Public.Unsubscribe)
	g.GET("/catalog/services", d.Public.Catalog, middleware.ResponseCache(d.Cache, d.Redis, d.Log))
	g.POST("/quotes/preview", d.Public.PreviewQuote)
	g.GET("/ratelimit/probe", d.Public.Probe)
}

// RegisterAdmin registers the back office under /v1/admin.  Every route
// needs a valid token carrying the admin role.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWT.Secret),
		middleware.RequireRole(d.JWT.AdminRole),
	)

	b := d.Bookings
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.PATCH("/bookings/:id", b.UpdateDetails)
	g.DELETE("/bookings/:id", b.Delete)
	g.POST("/bookings/:id/transition", b.Transition)
	g.POST("/bookings/:id/reschedule", b.Reschedule)
	g.POST("/bookings/:id/resend", b.Resend)

	q := d.Quotes
	g.GET("/quotes", q.List)
	g.POST("/quotes", q.Create)
	g.GET("/quotes/:id", q.Get)
	g.PUT("/quotes/:id", q.Update)
	g.PATCH("/quotes/:id/status", q.UpdateStatus)
	g.DELETE("/quotes/:id", q.Delete)

	m := d.Inbox
	g.GET("/messages", m.List)
	g.GET("/messages/:id", m.Open)
	g.PATCH("/messages/:id/status", m.SetStatus)
	g.PATCH("/messages/:id/notes", m.SetNotes)
	g.DELETE("/messages/:id", m.Delete)
	g.GET("/newsletter/stats", m.NewsletterStats)
}

// New builds an Echo instance with the shared middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(d.Log))
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d)
	RegisterPublic(e, d)
	RegisterAdmin(e, d)
	return e
}

package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxActor = "actor"
	ctxRole  = "role"
)

// ClientIdentity returns the key used to rate limit an anonymous caller: the
// first X-Forwarded-For hop, else X-Real-IP, else "unknown".
func ClientIdentity(c echo.Context) string {
	h := c.Request().Header
	if xff := h.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get(echo.HeaderXRealIP)); ip != "" {
		return ip
	}
	return "unknown"
}

// Actor returns the subject of the admin token, or "" outside the admin
// group.
func Actor(c echo.Context) string {
	s, _ := c.Get(ctxActor).(string)
	return s
}

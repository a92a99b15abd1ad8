package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// unauthorised is the only body a rejected admin request ever gets, so
// callers cannot tell a bad signature from an expired token or a wrong role.
var unauthorised = echo.Map{"error": "Unauthorised"}

// JWTAuth validates an HS256 bearer token and stores its subject and role
// claims in the context.  Tokens are issued elsewhere; this service only
// verifies them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return c.JSON(http.StatusUnauthorized, unauthorised)
			}
			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, unauthorised)
			}

			sub, _ := claims.GetSubject()
			if sub == "" {
				if email, ok := claims["email"].(string); ok {
					sub = email
				}
			}
			role, _ := claims["role"].(string)
			c.Set(ctxActor, sub)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware verifies Clerk session tokens.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{server: s}
}

// Protect returns RequireAuth when authentication is enabled and a
// pass-through middleware otherwise.
func (auth *AuthMiddleware) Protect() echo.MiddlewareFunc {
	if !auth.server.Config.Auth.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return auth.RequireAuth
}

// RequireAuth checks the "Authorization: Bearer" header with Clerk and
// stores the session subject and role in the echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		),
	)(func(c echo.Context) error {
		start := time.Now()

		claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
		if !ok {
			auth.server.Logger.Error().
				Str("function", "RequireAuth").
				Str("request_id", GetRequestID(c)).
				Dur("duration", time.Since(start)).
				Msg("could not get session claims from context")

			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserRoleKey, claims.ActiveOrganizationRole)

		auth.server.Logger.Debug().
			Str("function", "RequireAuth").
			Str("user_id", claims.Subject).
			Str("request_id", GetRequestID(c)).
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	})
}

// writeUnauthorized answers with the same JSON shape the global error handler uses.
func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, errs.NewUnauthorizedError("Unauthorized", false))

	auth.server.Logger.Warn().
		Str("function", "RequireAuth").
		Str("path", r.URL.Path).
		Msg("rejected request without a valid session token")
}

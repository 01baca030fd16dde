// Package router builds the echo instance: global middleware, the error
// handler and every route group.
package router

import (
	"github.com/deppfellow/cardapi/internal/handler"
	"github.com/deppfellow/cardapi/internal/middleware"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter registers middleware in order: request id, tracing, the
// request-scoped logger, request logging, recovery, security headers, CORS
// and finally rate limiting.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
		middlewares.RateLimit.Limit(),
	)

	registerSystemRoutes(router, h)
	registerClientRoutes(router, h, middlewares.Auth)

	return router
}

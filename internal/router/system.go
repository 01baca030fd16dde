package router

import (
	"net/http"

	"github.com/deppfellow/cardapi/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers health, documentation and help endpoints.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.Static("/static", handler.StaticDir)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	r.GET("/help", handler.HandleText(h.Help.Handler, h.Help.Help, http.StatusOK))
}

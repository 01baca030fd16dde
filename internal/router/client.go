package router

import (
	"net/http"

	"github.com/deppfellow/cardapi/internal/handler"
	"github.com/deppfellow/cardapi/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerClientRoutes registers the card request and process endpoints.
// Mutating routes require a session token when auth is enabled.
func registerClientRoutes(r *echo.Echo, h *handler.Handlers, auth *middleware.AuthMiddleware) {
	clients := h.Client
	processes := h.Process
	protect := auth.Protect()

	r.GET("/clients", handler.Handle(clients.Handler, clients.ListClients, http.StatusOK))
	r.GET("/client/:oib", handler.Handle(clients.Handler, clients.ListClientsByOIB, http.StatusOK))
	r.DELETE("/client/:oib", handler.HandleText(clients.Handler, clients.DeleteClientsByOIB, http.StatusOK), protect)

	card := r.Group("/client/card")
	card.POST("", handler.Handle(clients.Handler, clients.CreateClient, http.StatusOK), protect)
	card.GET("/:id", handler.Handle(clients.Handler, clients.GetClient, http.StatusOK))
	card.PUT("/:id", handler.Handle(clients.Handler, clients.ReplaceClient, http.StatusOK), protect)
	card.PATCH("/:id", handler.Handle(clients.Handler, clients.PatchClient, http.StatusOK), protect)
	card.DELETE("/:id", handler.HandleText(clients.Handler, clients.DeleteClient, http.StatusOK), protect)

	card.POST("/:id/startProcess", handler.HandleText(processes.Handler, processes.StartProcess, http.StatusOK), protect)
	card.DELETE("/:id/stopProcess", handler.HandleText(processes.Handler, processes.StopProcess, http.StatusOK), protect)

	stopAll := handler.HandleText(processes.Handler, processes.StopAllProcesses, http.StatusOK)
	r.DELETE("/clients/killProcess", stopAll, protect)
	r.DELETE("/clients/stopProcess", stopAll, protect)
}

package handler

import (
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/deppfellow/cardapi/internal/service"
)

// Handlers groups every HTTP handler for the router.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Help    *HelpHandler
	Client  *ClientHandler
	Process *ProcessHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Help:    NewHelpHandler(s),
		Client:  NewClientHandler(s, services.Client),
		Process: NewProcessHandler(s, services.Process),
	}
}

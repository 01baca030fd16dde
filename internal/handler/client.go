package handler

import (
	"github.com/deppfellow/cardapi/internal/model"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/deppfellow/cardapi/internal/service"
	"github.com/labstack/echo/v4"
)

// ClientHandler serves the card request CRUD endpoints.
type ClientHandler struct {
	Handler
	clients *service.ClientService
}

func NewClientHandler(s *server.Server, clients *service.ClientService) *ClientHandler {
	return &ClientHandler{Handler: NewHandler(s), clients: clients}
}

// ListClients returns every request matching the query filters, or all of them.
func (h *ClientHandler) ListClients(c echo.Context, req *model.ListClientsRequest) ([]model.Client, error) {
	clients, err := h.clients.List(c.Request().Context(), req.Filter)
	return orEmpty(clients), err
}

// ListClientsByOIB returns the requests of one client. No requests is an empty array.
func (h *ClientHandler) ListClientsByOIB(c echo.Context, req *model.OIBRequest) ([]model.Client, error) {
	clients, err := h.clients.ListByOIB(c.Request().Context(), req.OIB)
	return orEmpty(clients), err
}

func (h *ClientHandler) GetClient(c echo.Context, req *model.ClientIDRequest) (*model.Client, error) {
	return h.clients.Get(c.Request().Context(), req.ID)
}

func (h *ClientHandler) CreateClient(c echo.Context, req *model.CreateClientRequest) (*model.Client, error) {
	return h.clients.Create(c.Request().Context(), req)
}

func (h *ClientHandler) ReplaceClient(c echo.Context, req *model.ReplaceClientRequest) (*model.Client, error) {
	return h.clients.Replace(c.Request().Context(), req)
}

func (h *ClientHandler) PatchClient(c echo.Context, req *model.PatchClientRequest) (*model.Client, error) {
	return h.clients.Patch(c.Request().Context(), req)
}

func (h *ClientHandler) DeleteClient(c echo.Context, req *model.ClientIDRequest) (string, error) {
	return h.clients.Delete(c.Request().Context(), req.ID)
}

func (h *ClientHandler) DeleteClientsByOIB(c echo.Context, req *model.OIBRequest) (string, error) {
	return h.clients.DeleteByOIB(c.Request().Context(), req.OIB)
}

// orEmpty keeps empty results encoded as [] rather than null.
func orEmpty(clients []model.Client) []model.Client {
	if clients == nil {
		return []model.Client{}
	}
	return clients
}

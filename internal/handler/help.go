package handler

import (
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/labstack/echo/v4"
)

// HelpText lists the available endpoints.
const HelpText = "Welcome to CARD Request API" +
	"\n" +
	"\nUse GET /help to get list of available apis." +
	"\nUse GET /clients to retrieve all requests by all Clients." +
	"\nFeel free to use query params (oib, lastName, firstName or status) for filtering." +
	"\n" +
	"\nUse POST /client/card to add new Client request for card." +
	"\nUse GET /client/{oib} to retrieve data of all Client requests." +
	"\nUse GET /client/card/{id} to retrieve data of that specific requests." +
	"\nUse PATCH /client/card/{id} to update that specific request." +
	"\nUse PUT /client/card/{id} to overwrite that specific request." +
	"\nUse DELETE /client/{oib} to delete all requests of that Client." +
	"\nUse DELETE /client/card/{id} to delete that specific request." +
	"\n" +
	"\nUse POST /client/card/{id}/startProcess to start the creating card process." +
	"\nUse DELETE /client/card/{id}/stopProcess to stop the creating card process." +
	"\nUse DELETE /clients/killProcess to stop all requests by Clients."

type HelpHandler struct {
	Handler
}

func NewHelpHandler(s *server.Server) *HelpHandler {
	return &HelpHandler{Handler: NewHandler(s)}
}

func (h *HelpHandler) Help(c echo.Context, _ *EmptyRequest) (string, error) {
	return HelpText, nil
}

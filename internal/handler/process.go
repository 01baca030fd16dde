package handler

import (
	"github.com/deppfellow/cardapi/internal/model"
	"github.com/deppfellow/cardapi/internal/server"
	"github.com/deppfellow/cardapi/internal/service"
	"github.com/labstack/echo/v4"
)

// ProcessHandler starts and stops card making processes.
type ProcessHandler struct {
	Handler
	processes *service.ProcessService
}

func NewProcessHandler(s *server.Server, processes *service.ProcessService) *ProcessHandler {
	return &ProcessHandler{Handler: NewHandler(s), processes: processes}
}

func (h *ProcessHandler) StartProcess(c echo.Context, req *model.ClientIDRequest) (string, error) {
	return h.processes.Start(c.Request().Context(), req.ID)
}

func (h *ProcessHandler) StopProcess(c echo.Context, req *model.ClientIDRequest) (string, error) {
	return h.processes.Stop(c.Request().Context(), req.ID)
}

func (h *ProcessHandler) StopAllProcesses(c echo.Context, _ *EmptyRequest) (string, error) {
	return h.processes.StopAll(c.Request().Context())
}

package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/deppfellow/cardapi/internal/server"
	"github.com/labstack/echo/v4"
)

// StaticDir holds openapi.html and openapi.json, relative to the working directory.
const StaticDir = "static"

// OpenAPIHandler serves the API documentation UI.
type OpenAPIHandler struct {
	Handler
	dir string
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{Handler: NewHandler(s), dir: StaticDir}
}

// ServeOpenAPIUI serves openapi.html uncached so document changes show up immediately.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-cache")

	page, err := os.ReadFile(filepath.Join(h.dir, "openapi.html"))
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	if err := c.HTML(http.StatusOK, string(page)); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}
	return nil
}

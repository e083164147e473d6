package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetModels returns the model catalogs and the defaults chosen at startup.
// GET /api/models
func (h *Handler) GetModels(c echo.Context) error {
	info, err := h.service.Models()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

package handler

import (
	"net/http"

	"foodorder/internal/usecase"
	"foodorder/internal/validator"

	"github.com/labstack/echo/v4"
)

// /menu の公開API
type MenuHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewMenuHandler(uc *usecase.CatalogUsecase) *MenuHandler {
	return &MenuHandler{uc: uc}
}

func (h *MenuHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/menu", h.list)
}

// GET /menu?restaurant_id=
func (h *MenuHandler) list(c echo.Context) error {
	restaurantID, err := validator.ParseOptionalQueryID(c.QueryParam("restaurant_id"), "restaurant_id")
	if err != nil {
		return writeError(c, err)
	}

	items, err := h.uc.ListMenu(c.Request().Context(), restaurantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

package handler

import (
	"net/http"

	"foodorder/internal/config"
	"foodorder/internal/middleware"
	"foodorder/internal/repository"
	"foodorder/internal/usecase"
	"foodorder/internal/validator"

	"github.com/labstack/echo/v4"
)

// スタッフ用のメニュー管理
type AdminMenuHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewAdminMenuHandler(uc *usecase.CatalogUsecase) *AdminMenuHandler {
	return &AdminMenuHandler{uc: uc}
}

func (h *AdminMenuHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin/menu-items")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.StaffRoleGuard())

	admin.DELETE("/:id", h.delete)
}

// DELETE /admin/menu-items/:id
func (h *AdminMenuHandler) delete(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := validator.ParsePathID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteItem(c.Request().Context(), actor, itemID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

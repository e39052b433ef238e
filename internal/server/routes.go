package server

import (
	"net/http"

	"foodorder/internal/config"
	"foodorder/internal/handler"
	"foodorder/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はルーティングに載せるhandler一式。
type Handlers struct {
	Auth       *handler.AuthHandler
	Menu       *handler.MenuHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
	AdminMenu  *handler.AdminMenuHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(e)
	h.Menu.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminMenu.RegisterRoutes(e, cfg, userRepo)
}

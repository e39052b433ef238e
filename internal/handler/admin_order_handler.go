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

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin/orders")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.StaffRoleGuard())

	admin.GET("", h.list)
	admin.PUT("/:id/status", h.updateStatus)
	admin.GET("/:id/history", h.history)
}

// GET /admin/orders?status=&page=&limit=&user_id=
func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, err := validator.ParsePaging(c.QueryParam("page"), c.QueryParam("limit"))
	if err != nil {
		return writeError(c, err)
	}

	userID, err := validator.ParseOptionalQueryID(c.QueryParam("user_id"), "user_id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListAll(c.Request().Context(), actor, usecase.ListOrdersFilter{
		Status: c.QueryParam("status"),
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// PUT /admin/orders/:id/status
func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := validator.ParsePathID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	var req OrderStatusUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.SetStatus(c.Request().Context(), actor, orderID, usecase.SetStatusInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// GET /admin/orders/:id/history
func (h *AdminOrderHandler) history(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := validator.ParsePathID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	changes, err := h.uc.StatusHistory(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"history": changes})
}

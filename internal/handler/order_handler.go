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

const HeaderIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type PlaceOrderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.placeOrder)
	g.GET("", h.listMine)
	g.GET("/:id", h.getMine)
}

// POST /orders
func (h *OrderHandler) placeOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PlaceOrderRequest
	if err := decodeJSON(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	pm, err := validator.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   pm,
		IdempotencyKey:  c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// GET /orders
func (h *OrderHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	outs, err := h.uc.ListMyOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"orders": outs})
}

// GET /orders/:id
func (h *OrderHandler) getMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := validator.ParsePathID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetMyOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

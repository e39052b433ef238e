package handler

import (
	"encoding/json"
	"net/http"

	"foodorder/internal/config"
	"foodorder/internal/middleware"
	"foodorder/internal/repository"
	"foodorder/internal/usecase"
	"foodorder/internal/validator"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// 数値は文字列で来ることもあるのでRawMessageで受ける
type AddCartRequest struct {
	ItemID   json.RawMessage `json:"item_id"`
	Quantity json.RawMessage `json:"quantity"`
	Revision json.RawMessage `json:"revision"`
}

// /cart, /cart/items/:itemId を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.POST("", h.addToCart)
	g.DELETE("", h.clearCart)
	g.DELETE("/items/:itemId", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := decodeJSON(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	itemID, err := validator.ParseID(req.ItemID, "item_id")
	if err != nil {
		return writeError(c, err)
	}
	qty, err := validator.ParseOptionalInt(req.Quantity, "quantity")
	if err != nil {
		return writeError(c, err)
	}
	rev, err := validator.ParseOptionalInt(req.Revision, "revision")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddOrUpdateLine(c.Request().Context(), userID, usecase.AddOrUpdateLineInput{
		ItemID:   itemID,
		Quantity: qty,
		Revision: rev,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, err := validator.ParsePathID(c.Param("itemId"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.RemoveLine(c.Request().Context(), userID, itemID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.ClearCart(c.Request().Context(), userID); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

package middleware

import (
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Kind    usecase.ErrorKind `json:"kind"`
	Message string            `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handlerのwriteErrorと同じ形で返す
func deny(c echo.Context, kind usecase.ErrorKind, msg string) error {
	return c.JSON(kind.HTTPStatus(), errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

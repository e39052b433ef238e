package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"foodorder/internal/infra/logger"
	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Kind    usecase.ErrorKind `json:"kind"`
	Message string            `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func errorJSON(kind usecase.ErrorKind, msg string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Kind: kind, Message: msg}}
}

// writeError はusecaseのエラーをステータスとJSONにする。
// Internalの原因はログにだけ出す。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	ae, ok := usecase.AsAppError(err)
	if !ok {
		ae = &usecase.AppError{Kind: usecase.KindInternal, Message: "internal error", Err: err}
	}

	if ae.Kind == usecase.KindInternal {
		logger.FromContext(c.Request().Context(), nil).Error("internal error",
			zap.String("path", c.Path()),
			zap.Error(ae.Err),
		)
		return c.JSON(http.StatusInternalServerError, errorJSON(usecase.KindInternal, "internal error"))
	}

	return c.JSON(ae.Kind.HTTPStatus(), errorJSON(ae.Kind, ae.Message))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorJSON(usecase.KindValidation, msg))
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized, "unauthorized"))
}

// JSONボディを読む。知らないフィールドは拒否。
func decodeJSON(c echo.Context, dst interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid body")
	}
	return nil
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	a, ok := middleware.ActorFromContext(c)
	return a.UserID, ok
}

func getActorFromContext(c echo.Context) (usecase.Actor, bool) {
	return middleware.ActorFromContext(c)
}

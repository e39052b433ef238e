package middleware

import (
	"foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			user, err := userRepo.FindByID(c.Request().Context(), actor.UserID)
			if err != nil {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv || !user.IsActive {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			//roleはDBの値を正とする
			actor.Role = user.Role
			c.Set(CtxActorKey, actor)

			return next(c)
		}
	}
}

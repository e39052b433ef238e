package middleware

import (
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// StaffRoleGuard はSTAFF以外を403で止める。
func StaffRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok || actor.Role == "" {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			if !actor.IsStaff() {
				return deny(c, usecase.KindForbidden, "staff only")
			}

			return next(c)
		}
	}
}

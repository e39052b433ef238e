package middleware

import (
	"errors"
	"strconv"
	"strings"

	"foodorder/internal/config"
	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxActorKey        = "actor"         // usecase.Actor
	CtxTokenVersionKey = "token_version" // int
	CtxRequestIDKey    = "request_id"    // string
)

var errBadClaims = errors.New("invalid access token claims")

// 発行側(infra/token)はsubを文字列で入れる。数値でも受ける。
type subjectID int64

func (s *subjectID) UnmarshalJSON(b []byte) error {
	id, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return errBadClaims
	}
	*s = subjectID(id)
	return nil
}

// アクセストークンのclaims。exp/iatの検証はRegisteredClaimsに任せる。
type accessClaims struct {
	Subject      subjectID  `json:"sub"`
	Role         model.Role `json:"role"`
	TokenVersion *int       `json:"tv"`
	jwt.RegisteredClaims
}

func (c accessClaims) Valid() error {
	if err := c.RegisteredClaims.Valid(); err != nil {
		return err
	}
	if c.Subject <= 0 || !c.Role.Valid() || c.TokenVersion == nil || *c.TokenVersion < 0 {
		return errBadClaims
	}
	return nil
}

func (c accessClaims) actor() usecase.Actor {
	return usecase.Actor{UserID: int64(c.Subject), Role: c.Role}
}

// parseAccessToken はHS256のアクセストークンを検証してActorとtoken_versionを返す。
func parseAccessToken(secret []byte, raw string) (usecase.Actor, int, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return usecase.Actor{}, 0, err
	}
	return claims.actor(), *claims.TokenVersion, nil
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// AuthJWT はBearerトークンを検証し、Actorをcontextに載せる。
// roleはまだトークンの値。DBの値で上書きするのはTokenVersionGuard。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	secret := []byte(cfg.JWTSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			actor, tv, err := parseAccessToken(secret, raw)
			if err != nil {
				return deny(c, usecase.KindUnauthorized, "unauthorized")
			}

			c.Set(CtxActorKey, actor)
			c.Set(CtxTokenVersionKey, tv)
			return next(c)
		}
	}
}

// ActorFromContext はAuthJWTが載せたActorを返す。未認証ならfalse。
func ActorFromContext(c echo.Context) (usecase.Actor, bool) {
	a, ok := c.Get(CtxActorKey).(usecase.Actor)
	if !ok || a.UserID <= 0 {
		return usecase.Actor{}, false
	}
	return a, true
}

package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodorder/internal/config"
	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type mwOKResponse struct {
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type MockUserRepoForMiddleware struct {
	mock.Mock
}

func (m *MockUserRepoForMiddleware) Create(ctx context.Context, user *model.User) error {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) FindByEmail(ctx context.Context, email string) (model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) FindByID(ctx context.Context, id int64) (model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *MockUserRepoForMiddleware) FindByIDs(ctx context.Context, ids []int64) (map[int64]model.User, error) {
	panic("not used in middleware tests")
}

func (m *MockUserRepoForMiddleware) TouchLastLogin(ctx context.Context, id int64) error {
	panic("not used in middleware tests")
}

var _ repository.UserRepository = (*MockUserRepoForMiddleware)(nil)

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, sub int64, role string, tv int, signingMethod jwt.SigningMethod) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	}

	token := jwt.NewWithClaims(signingMethod, claims)

	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, method string, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func decodeMWOK(t *testing.T, rec *httptest.ResponseRecorder) mwOKResponse {
	t.Helper()
	var r mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

// =====================
// AuthJWT
// =====================

// Authorizationなし => 401
func TestMiddleware_AuthJWT_Unauthorized_NoHeader(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeMWError(t, rec)
	assert.Equal(t, "Unauthorized", body.Error.Kind)
	assert.Equal(t, "unauthorized", body.Error.Message)
}

// Bearer形式じゃない => 401
func TestMiddleware_AuthJWT_Unauthorized_BadScheme(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Token abc.def.ghi")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 署名違い => 401
func TestMiddleware_AuthJWT_Unauthorized_BadSignature(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "correct-secret"}

	raw := mustMakeJWT(t, "wrong-secret", 1, "USER", 0, jwt.SigningMethodHS256)

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// アルゴリズム違い（HS512）=> 401
func TestMiddleware_AuthJWT_Unauthorized_WrongAlg(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	raw := mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 0, jwt.SigningMethodHS512)

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 正常：ctxに値が入る
func TestMiddleware_AuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	raw := mustMakeJWT(t, cfg.JWTSecret, 123, "USER", 7, jwt.SigningMethodHS256)

	e.GET("/protected", func(c echo.Context) error {
		actor, _ := middleware.ActorFromContext(c)
		tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)

		return c.JSON(http.StatusOK, mwOKResponse{
			UserID:       actor.UserID,
			Role:         string(actor.Role),
			TokenVersion: tv,
		})
	}, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeMWOK(t, rec)
	assert.Equal(t, int64(123), body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

func actorEchoHandler(c echo.Context) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.JSON(http.StatusOK, mwOKResponse{UserID: actor.UserID, Role: string(actor.Role)})
}

// 発行側と同じ文字列のsubも受ける
func TestMiddleware_AuthJWT_Success_StringSubject(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "42",
		"role": "STAFF",
		"tv":   0,
		"exp":  9999999999,
	}).SignedString([]byte(cfg.JWTSecret))
	assert.NoError(t, err)

	e.GET("/protected", actorEchoHandler, middleware.AuthJWT(cfg))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeMWOK(t, rec)
	assert.Equal(t, int64(42), body.UserID)
	assert.Equal(t, "STAFF", body.Role)
}

// claimsが欠けている・壊れている => 401
func TestMiddleware_AuthJWT_Unauthorized_BadClaims(t *testing.T) {
	cfg := config.Config{JWTSecret: "test-secret"}

	cases := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"unknown role", jwt.MapClaims{"sub": 1, "role": "ADMIN", "tv": 0, "exp": 9999999999}},
		{"no role", jwt.MapClaims{"sub": 1, "tv": 0, "exp": 9999999999}},
		{"zero sub", jwt.MapClaims{"sub": 0, "role": "USER", "tv": 0, "exp": 9999999999}},
		{"non numeric sub", jwt.MapClaims{"sub": "abc", "role": "USER", "tv": 0, "exp": 9999999999}},
		{"no tv", jwt.MapClaims{"sub": 1, "role": "USER", "exp": 9999999999}},
		{"negative tv", jwt.MapClaims{"sub": 1, "role": "USER", "tv": -1, "exp": 9999999999}},
		{"expired", jwt.MapClaims{"sub": 1, "role": "USER", "tv": 0, "exp": 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc.claims).SignedString([]byte(cfg.JWTSecret))
			assert.NoError(t, err)

			e.GET("/protected", actorEchoHandler, middleware.AuthJWT(cfg))

			rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

// =====================
// TokenVersionGuard
// =====================

// AuthJWT無しでGuardだけ => 401
func TestMiddleware_TokenVersionGuard_Unauthorized_MissingContext(t *testing.T) {
	e := echo.New()
	userRepo := new(MockUserRepoForMiddleware)

	e.GET("/protected", okHandler, middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// tv不一致 => 401
func TestMiddleware_TokenVersionGuard_Unauthorized_TokenVersionMismatch(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)

	raw := mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 0, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(model.User{
		ID:           1,
		Email:        "user@test.com",
		Role:         model.RoleUser,
		TokenVersion: 1, // 不一致
		IsActive:     true,
	}, nil)

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	userRepo.AssertExpectations(t)
}

// 停止ユーザー => 401
func TestMiddleware_TokenVersionGuard_Unauthorized_Inactive(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)
	raw := mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 0, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(model.User{ID: 1, Role: model.RoleUser, IsActive: false}, nil)

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// tv一致 => 200
func TestMiddleware_TokenVersionGuard_Success(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)

	raw := mustMakeJWT(t, cfg.JWTSecret, 1, "USER", 5, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(model.User{
		ID:           1,
		Email:        "user@test.com",
		Role:         model.RoleUser,
		TokenVersion: 5, // 一致
		IsActive:     true,
	}, nil)

	e.GET("/protected", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	userRepo.AssertExpectations(t)
}

// Guardを通った後のActorはDBのroleになる
func TestMiddleware_TokenVersionGuard_OverridesRoleFromDB(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)
	raw := mustMakeJWT(t, cfg.JWTSecret, 3, "USER", 2, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Role: model.RoleStaff, TokenVersion: 2, IsActive: true}, nil)

	e.GET("/protected", actorEchoHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))

	rec := runRequest(t, e, http.MethodGet, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeMWOK(t, rec)
	assert.Equal(t, int64(3), body.UserID)
	assert.Equal(t, "STAFF", body.Role)
	userRepo.AssertExpectations(t)
}

// =====================
// StaffRoleGuard
// =====================

// DBで降格されていればトークンがSTAFFでも403
func TestMiddleware_StaffRoleGuard_UsesRoleFromDB(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)
	raw := mustMakeJWT(t, cfg.JWTSecret, 9, "STAFF", 0, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(9)).Return(model.User{ID: 9, Role: model.RoleUser, IsActive: true}, nil)

	e.GET("/admin", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo), middleware.StaffRoleGuard())

	rec := runRequest(t, e, http.MethodGet, "/admin", "Bearer "+raw)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeMWError(t, rec)
	assert.Equal(t, "Forbidden", body.Error.Kind)
}

func TestMiddleware_StaffRoleGuard_Staff(t *testing.T) {
	e := echo.New()
	cfg := config.Config{JWTSecret: "test-secret"}

	userRepo := new(MockUserRepoForMiddleware)
	raw := mustMakeJWT(t, cfg.JWTSecret, 9, "STAFF", 0, jwt.SigningMethodHS256)

	userRepo.On("FindByID", mock.Anything, int64(9)).Return(model.User{ID: 9, Role: model.RoleStaff, IsActive: true}, nil)

	e.GET("/admin", okHandler, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo), middleware.StaffRoleGuard())

	rec := runRequest(t, e, http.MethodGet, "/admin", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_StaffRoleGuard_NoRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", okHandler, middleware.StaffRoleGuard())

	rec := runRequest(t, e, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// RequestLogger
// =====================

func TestMiddleware_RequestLogger_AssignsRequestIDAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.New(core)))
	e.GET("/ping", okHandler)

	rec := runRequest(t, e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, rec.Header().Get(middleware.HeaderRequestID), fields["request_id"])
	}
}

func TestMiddleware_RequestLogger_KeepsClientRequestID(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.New(core)))
	e.GET("/ping", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(middleware.HeaderRequestID))
}

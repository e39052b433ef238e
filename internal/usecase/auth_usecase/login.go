package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/repository"
	"foodorder/internal/usecase"

	"go.uber.org/zap"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

// token 形（JwtAccessToken相当）
type JwtAccessToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

// handlerがJSONにして返す
type LoginOutput struct {
	User  model.User     `json:"user"`
	Token JwtAccessToken `json:"token"`
}

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid credentials")

// 停止済みユーザー
var ErrUserInactive = errors.New("user is inactive")

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	userRepo repository.UserRepository
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	clock    usecase.Clock
	log      *zap.Logger
}

// DI
func NewLoginUsecase(
	userRepo repository.UserRepository,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock usecase.Clock,
	log *zap.Logger,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo: userRepo,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
		log:      log,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	var out LoginOutput

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return out, usecase.NewError(usecase.KindValidation, "email and password are required")
	}

	//emailでユーザー取得
	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return out, unauthorized(ErrInvalidCredentials)
		}
		return out, &usecase.AppError{Kind: usecase.KindInternal, Message: "internal error", Err: err}
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return out, &usecase.AppError{Kind: usecase.KindForbidden, Message: ErrUserInactive.Error(), Err: ErrUserInactive}
	}

	//パスワード照合
	if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
		return out, unauthorized(ErrInvalidCredentials)
	}

	//AccessToken発行
	now := u.clock.Now()
	accessToken, accessExp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return out, &usecase.AppError{Kind: usecase.KindInternal, Message: "internal error", Err: err}
	}

	//最終ログイン時刻更新（失敗してもログインは通す）
	if err := u.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		u.log.Warn("failed to record last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	out.User = user
	out.Token = JwtAccessToken{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}
	return out, nil
}

func unauthorized(err error) error {
	return &usecase.AppError{Kind: usecase.KindUnauthorized, Message: err.Error(), Err: err}
}

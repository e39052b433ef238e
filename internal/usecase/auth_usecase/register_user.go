package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/repository"
	"foodorder/internal/usecase"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 12

// 会員登録の入力
type RegisterUserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User model.User `json:"user"`
}

var (
	// 入力が不正
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrWeakPassword       = errors.New("weak password")

	// 競合
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// RegisterUserUsecaseは会員登録の処理。
type RegisterUserUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	clock    usecase.Clock
}

// DI
func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	clock usecase.Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		clock:    clock,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" {
		return out, usecase.NewError(usecase.KindValidation, "name is required")
	}

	// emailの形式チェック
	if !isValidEmailFormat(email) {
		return out, invalid(ErrInvalidEmailFormat)
	}

	// password の長さチェック
	if len(in.Password) < minPasswordLen {
		return out, invalid(ErrPasswordTooShort)
	}

	// よくある弱いパスワードの拒否
	if isWeakPassword(in.Password) {
		return out, invalid(ErrWeakPassword)
	}

	// パスワードをハッシュ化
	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return out, &usecase.AppError{Kind: usecase.KindInternal, Message: "internal error", Err: err}
	}

	now := u.clock.Now()
	user := &model.User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hashed,         // 平文は保存しない
		Role:         model.RoleUser, // 初期はUSER
		TokenVersion: 0,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// email重複は一意制約で判定（先に検索すると同時登録で漏れる）
	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return out, &usecase.AppError{Kind: usecase.KindConflict, Message: ErrEmailAlreadyExists.Error(), Err: ErrEmailAlreadyExists}
		}
		return out, &usecase.AppError{Kind: usecase.KindInternal, Message: "internal error", Err: err}
	}

	out.User = *user
	return out, nil
}

func invalid(err error) error {
	return &usecase.AppError{Kind: usecase.KindValidation, Message: err.Error(), Err: err}
}

// メールチェック
func isValidEmailFormat(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	// "Name <a@b>" 形式は受け付けない
	return err == nil && addr.Address == email
}

// パスワードのよくある弱いパスワード
func isWeakPassword(password string) bool {
	normalized := strings.ToLower(strings.TrimSpace(password))

	weak := map[string]struct{}{
		"password":     {},
		"password123":  {},
		"password1234": {},
		"123456789012": {},
		"qwertyuiop12": {},
		"letmein12345": {},
		"admin1234567": {},
	}

	_, ok := weak[normalized]
	return ok
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

// bcryptでハッシュ化
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

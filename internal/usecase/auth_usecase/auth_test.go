package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/memstore"
	"foodorder/internal/usecase"
	auth "foodorder/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// =====================
// Mock: AccessTokenIssuer
// =====================

type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) Issue(userID int64, role model.Role, tokenVersion int, at time.Time) (string, time.Time, error) {
	args := m.Called(userID, role, tokenVersion, at)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func register(t *testing.T, s *memstore.Store, email, password string) model.User {
	t.Helper()
	uc := auth.NewRegisterUserUsecase(s.Users(), auth.NewBcryptPasswordHasher(bcrypt.MinCost), fixedClock{now})
	out, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Name:     "Asha",
		Email:    email,
		Phone:    "9800000000",
		Password: password,
	})
	require.NoError(t, err)
	return out.User
}

func TestRegister_Success(t *testing.T) {
	s := memstore.New()

	u := register(t, s, "  Asha@Example.com ", "correct-horse-battery")

	assert.NotZero(t, u.ID)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "correct-horse-battery", u.PasswordHash)
	assert.True(t, auth.NewBcryptPasswordVerifier().Verify("correct-horse-battery", u.PasswordHash))
}

func TestRegister_Validation(t *testing.T) {
	s := memstore.New()
	uc := auth.NewRegisterUserUsecase(s.Users(), auth.NewBcryptPasswordHasher(bcrypt.MinCost), fixedClock{now})

	cases := []struct {
		name string
		in   auth.RegisterUserInput
		want error
	}{
		{"bad email", auth.RegisterUserInput{Name: "A", Email: "not-an-email", Password: "correct-horse-battery"}, auth.ErrInvalidEmailFormat},
		{"display name form", auth.RegisterUserInput{Name: "A", Email: "A <a@b.com>", Password: "correct-horse-battery"}, auth.ErrInvalidEmailFormat},
		{"short password", auth.RegisterUserInput{Name: "A", Email: "a@b.com", Password: "short"}, auth.ErrPasswordTooShort},
		{"weak password", auth.RegisterUserInput{Name: "A", Email: "a@b.com", Password: "Password1234"}, auth.ErrWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tc.in)
			assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{Email: "a@b.com", Password: "correct-horse-battery"})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := memstore.New()
	register(t, s, "asha@example.com", "correct-horse-battery")

	uc := auth.NewRegisterUserUsecase(s.Users(), auth.NewBcryptPasswordHasher(bcrypt.MinCost), fixedClock{now})
	_, err := uc.Execute(context.Background(), auth.RegisterUserInput{
		Name: "Other", Email: "ASHA@example.com", Password: "another-long-secret",
	})
	assert.Equal(t, usecase.KindConflict, usecase.KindOf(err))
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
}

func TestLogin_Success(t *testing.T) {
	s := memstore.New()
	u := register(t, s, "asha@example.com", "correct-horse-battery")

	issuer := new(MockIssuer)
	issuer.On("Issue", u.ID, model.RoleUser, 0, now).Return("signed.jwt.token", now.Add(15*time.Minute), nil)

	uc := auth.NewLoginUsecase(s.Users(), auth.NewBcryptPasswordVerifier(), issuer, fixedClock{now}, zap.NewNop())
	out, err := uc.Execute(context.Background(), auth.LoginInput{Email: "Asha@Example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	assert.Equal(t, "signed.jwt.token", out.Token.AccessToken)
	assert.Equal(t, "Bearer", out.Token.TokenType)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, u.ID, out.User.ID)
	require.NotNil(t, out.User.LastLoginAt)

	stored, err := s.Users().FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)
	issuer.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := memstore.New()
	register(t, s, "asha@example.com", "correct-horse-battery")

	issuer := new(MockIssuer)
	uc := auth.NewLoginUsecase(s.Users(), auth.NewBcryptPasswordVerifier(), issuer, fixedClock{now}, zap.NewNop())

	// パスワード違いと未登録は同じエラー
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "asha@example.com", Password: "wrong-password-here"})
	assert.Equal(t, usecase.KindUnauthorized, usecase.KindOf(err))
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = uc.Execute(context.Background(), auth.LoginInput{Email: "nobody@example.com", Password: "correct-horse-battery"})
	assert.Equal(t, usecase.KindUnauthorized, usecase.KindOf(err))
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = uc.Execute(context.Background(), auth.LoginInput{Email: "", Password: "x"})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))

	issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InactiveUser(t *testing.T) {
	s := memstore.New()
	hash, err := auth.NewBcryptPasswordHasher(bcrypt.MinCost).Hash("correct-horse-battery")
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(context.Background(), &model.User{
		Name: "Gone", Email: "gone@example.com", PasswordHash: hash, Role: model.RoleUser, IsActive: false,
	}))

	issuer := new(MockIssuer)
	uc := auth.NewLoginUsecase(s.Users(), auth.NewBcryptPasswordVerifier(), issuer, fixedClock{now}, zap.NewNop())

	_, err = uc.Execute(context.Background(), auth.LoginInput{Email: "gone@example.com", Password: "correct-horse-battery"})
	assert.Equal(t, usecase.KindForbidden, usecase.KindOf(err))
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

func TestLogin_IssuerFailureIsInternal(t *testing.T) {
	s := memstore.New()
	u := register(t, s, "asha@example.com", "correct-horse-battery")

	issuer := new(MockIssuer)
	issuer.On("Issue", u.ID, model.RoleUser, 0, now).Return("", time.Time{}, errors.New("signing failed"))

	uc := auth.NewLoginUsecase(s.Users(), auth.NewBcryptPasswordVerifier(), issuer, fixedClock{now}, zap.NewNop())
	_, err := uc.Execute(context.Background(), auth.LoginInput{Email: "asha@example.com", Password: "correct-horse-battery"})
	assert.Equal(t, usecase.KindInternal, usecase.KindOf(err))
}

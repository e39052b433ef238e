package token

import (
	"errors"
	"strconv"
	"time"

	"foodorder/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

// HS256のアクセストークン発行。
// claimsは sub(ユーザーID文字列) / role / tv(token_version) / iat / exp。
type JWTIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

// DI
func NewJWTIssuer(secret string, accessTTL time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &JWTIssuer{secret: []byte(secret), accessTTL: accessTTL}, nil
}

func (i *JWTIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"tv":   tokenVersion,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

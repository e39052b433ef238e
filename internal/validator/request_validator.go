package validator

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/usecase"

	"github.com/shopspring/decimal"
)

// クライアントによって数値が文字列で来ることがあるので、ここで揃えてからusecaseに渡す。

const (
	maxIntegerTextLen  = 32
	maxIntegerExponent = 18
)

func invalid(msg string) error {
	return usecase.NewError(usecase.KindValidation, msg)
}

func isAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// parseInteger は 3 / "3" / 3.0 を受け付け、3.5 や "abc" を拒否する。
func parseInteger(raw json.RawMessage, field string) (int64, error) {
	t := bytes.TrimSpace(raw)

	var s string
	if len(t) > 0 && t[0] == '"' {
		if err := json.Unmarshal(t, &s); err != nil {
			return 0, invalid(field + " must be an integer")
		}
		s = strings.TrimSpace(s)
	} else {
		s = string(t)
	}
	if s == "" {
		return 0, invalid(field + " must be an integer")
	}
	// int64は最大19桁。1e10000000のような入力を展開させない
	if len(s) > maxIntegerTextLen {
		return 0, invalid(field + " is out of range")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalid(field + " must be an integer")
	}
	if exp := d.Exponent(); exp > maxIntegerExponent || exp < -maxIntegerExponent {
		return 0, invalid(field + " is out of range")
	}
	if !d.IsInteger() {
		return 0, invalid(field + " must be an integer")
	}
	if !d.BigInt().IsInt64() {
		return 0, invalid(field + " is out of range")
	}
	return d.IntPart(), nil
}

// ParseID は必須のID（1以上）。
func ParseID(raw json.RawMessage, field string) (int64, error) {
	if isAbsent(raw) {
		return 0, invalid(field + " is required")
	}
	id, err := parseInteger(raw, field)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, invalid("invalid " + field)
	}
	return id, nil
}

// ParseOptionalInt は省略可の整数。省略/nullならnil。0や負数はそのまま返す。
func ParseOptionalInt(raw json.RawMessage, field string) (*int64, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	v, err := parseInteger(raw, field)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParsePathID は /orders/:id などのパスパラメータ。
func ParsePathID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id")
	}
	return id, nil
}

// ParseOptionalQueryID はクエリの任意ID。空ならnil。
func ParseOptionalQueryID(s string, field string) (*int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return nil, invalid("invalid " + field)
	}
	return &id, nil
}

// ParsePaymentMethod は "COD" / "cash_on_delivery" / "Online" などを正規化する。
func ParsePaymentMethod(raw string) (model.PaymentMethod, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalid("payment_method is required")
	}
	pm, ok := model.ParsePaymentMethod(raw)
	if !ok {
		return "", invalid("invalid payment_method")
	}
	return pm, nil
}

// ParsePaging はpage/limitのクエリ。空なら0（usecase側の既定値）。
func ParsePaging(pageStr, limitStr string) (page int, limit int, err error) {
	if s := strings.TrimSpace(pageStr); s != "" {
		page, err = strconv.Atoi(s)
		if err != nil || page < 1 {
			return 0, 0, invalid("invalid page")
		}
	}
	if s := strings.TrimSpace(limitStr); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 {
			return 0, 0, invalid("invalid limit")
		}
	}
	return page, limit, nil
}

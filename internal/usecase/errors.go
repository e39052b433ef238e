package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind はクライアントが機械的に判定できるエラー種別。
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindForbidden         ErrorKind = "Forbidden"
	KindItemNotFound      ErrorKind = "ItemNotFound"
	KindCartNotFound      ErrorKind = "CartNotFound"
	KindOrderNotFound     ErrorKind = "OrderNotFound"
	KindEmptyCart         ErrorKind = "EmptyCart"
	KindItemUnavailable   ErrorKind = "ItemUnavailable"
	KindInvalidStatus     ErrorKind = "InvalidStatus"
	KindIllegalTransition ErrorKind = "IllegalTransition"
	KindConflict          ErrorKind = "Conflict"
	KindInternal          ErrorKind = "Internal"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:        http.StatusBadRequest,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindItemNotFound:      http.StatusNotFound,
	KindCartNotFound:      http.StatusNotFound,
	KindOrderNotFound:     http.StatusNotFound,
	KindEmptyCart:         http.StatusUnprocessableEntity,
	KindItemUnavailable:   http.StatusUnprocessableEntity,
	KindInvalidStatus:     http.StatusBadRequest,
	KindIllegalTransition: http.StatusConflict,
	KindConflict:          http.StatusConflict,
	KindInternal:          http.StatusInternalServerError,
}

// HTTPStatus は種別に対応するステータスコード。
func (k ErrorKind) HTTPStatus() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError はusecaseが返すエラー。
// Errは原因（ログ用）で、クライアントには出さない。
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

// internalError はDBなど想定外の失敗。メッセージは固定
func internalError(err error) error {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// KindOf はAppError以外をInternal扱いにする。
func KindOf(err error) ErrorKind {
	if ae, ok := AsAppError(err); ok {
		return ae.Kind
	}
	return KindInternal
}

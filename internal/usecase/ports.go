package usecase

import (
	"time"

	"foodorder/internal/domain/model"
)

// 現在の時間
type Clock interface {
	Now() time.Time
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// Actor は認証済みの呼び出し元（middlewareが詰めたもの）。
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsStaff() bool {
	return a.UserID > 0 && a.Role.IsStaff()
}

// staffだけ通す
func requireStaff(actor Actor) error {
	if actor.UserID <= 0 {
		return NewError(KindUnauthorized, "unauthorized")
	}
	if !actor.IsStaff() {
		return NewError(KindForbidden, "staff only")
	}
	return nil
}

package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type OrderListFilter struct {
	Page   int
	Limit  int
	Status model.OrderStatus
	UserID *int64
}

type OrderRepository interface {
	// 一意制約違反（同じ冪等キー）はErrConflict
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	// 新しい順。件数も返す
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	// 現在のステータスがfromのときだけ更新する。変わっていたらErrConflict
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) error
}

type OrderLineRepository interface {
	CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error)
}

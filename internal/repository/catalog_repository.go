package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// メニューの参照窓口。カートと注文からは読むだけ。
type CatalogRepository interface {
	// 削除済みはErrNotFound。IsAvailable=falseでも返す
	FindItemByID(ctx context.Context, id int64) (model.MenuItem, error)
	// 注文可能な商品一覧（restaurantIDがnilなら全店舗）
	ListAvailable(ctx context.Context, restaurantID *int64) ([]model.MenuItem, error)
	SoftDeleteItem(ctx context.Context, id int64) error

	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	CreateItem(ctx context.Context, item *model.MenuItem) error
}

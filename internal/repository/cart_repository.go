package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type CartRepository interface {
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// トランザクション内で使う。コミットまで他の更新を待たせる
	FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
	// 同時作成で一意制約に当たったら既存を返す
	Create(ctx context.Context, userID int64) (model.Cart, error)
	ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error)

	// 明細を丸ごと置き換えてrevisionを+1する。
	// 保存済みrevisionがexpectedRevisionと違えばErrConflict。
	ReplaceLines(ctx context.Context, cartID int64, expectedRevision int64, lines []model.CartLine) (int64, error)

	// 明細を全削除してrevisionを+1する。
	// 保存済みrevisionがexpectedRevisionと違えばErrConflict。
	Clear(ctx context.Context, cartID int64, expectedRevision int64) error

	// 商品削除時に全カートから該当明細を消す。消した件数を返す
	RemoveItemFromAll(ctx context.Context, menuItemID int64) (int64, error)
}

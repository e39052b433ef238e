package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。email重複はErrConflict
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	//管理画面の注文一覧で氏名・連絡先を付けるためにまとめて引く
	FindByIDs(ctx context.Context, userIDs []int64) (map[int64]model.User, error)
	//最終ログインの記録
	TouchLastLogin(ctx context.Context, userID int64) error
}

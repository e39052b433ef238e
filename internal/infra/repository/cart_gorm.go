package repository

import (
	"context"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得
func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// 行ロック付きで取得（checkout中に明細を書き換えさせない）
func (r *CartGormRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// カートを作る。同時に作られていたら既存を返す
func (r *CartGormRepository) Create(ctx context.Context, userID int64) (model.Cart, error) {
	cart := model.Cart{UserID: userID}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error
	if err != nil {
		return model.Cart{}, err
	}

	// DoNothingで何も入らなかった＝先に作られていた
	if cart.ID == 0 {
		return r.FindByUserID(ctx, userID)
	}
	return cart, nil
}

// カート明細を一覧取得
func (r *CartGormRepository) ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error) {
	var lines []model.CartLine
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("position asc").
		Order("id asc").
		Find(&lines).Error; err != nil {
		return []model.CartLine{}, err
	}
	return lines, nil
}

// revisionが一致するときだけ明細を丸ごと入れ替える
func (r *CartGormRepository) ReplaceLines(ctx context.Context, cartID int64, expectedRevision int64, lines []model.CartLine) (int64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Cart{}).
			Where("id = ? AND revision = ?", cartID, expectedRevision).
			Updates(map[string]interface{}{
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrConflict
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartLine{}).Error; err != nil {
			return err
		}

		if len(lines) == 0 {
			return nil
		}

		rows := make([]model.CartLine, 0, len(lines))
		for i, l := range lines {
			rows = append(rows, model.CartLine{
				CartID:     cartID,
				MenuItemID: l.MenuItemID,
				Quantity:   l.Quantity,
				Position:   i,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return 0, err
	}
	return expectedRevision + 1, nil
}

// revisionが一致するときだけ明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64, expectedRevision int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Cart{}).
			Where("id = ? AND revision = ?", cartID, expectedRevision).
			Updates(map[string]interface{}{
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Cart{}).Where("id = ?", cartID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return repo.ErrNotFound
			}
			return repo.ErrConflict
		}

		//cart_linesを全削除
		return tx.Where("cart_id = ?", cartID).Delete(&model.CartLine{}).Error
	})
}

// 全カートから商品を外す（開いているカートのrevisionも進める）
func (r *CartGormRepository) RemoveItemFromAll(ctx context.Context, menuItemID int64) (int64, error) {
	var removed int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cartIDs []int64
		if err := tx.Model(&model.CartLine{}).
			Where("menu_item_id = ?", menuItemID).
			Distinct().
			Pluck("cart_id", &cartIDs).Error; err != nil {
			return err
		}
		if len(cartIDs) == 0 {
			return nil
		}

		res := tx.Where("menu_item_id = ?", menuItemID).Delete(&model.CartLine{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		return tx.Model(&model.Cart{}).
			Where("id IN ?", cartIDs).
			Updates(map[string]interface{}{
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

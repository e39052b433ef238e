package repository

import (
	"context"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type CatalogGormRepository struct {
	db *gorm.DB
}

// DI
func NewCatalogGormRepository(db *gorm.DB) *CatalogGormRepository {
	return &CatalogGormRepository{db: db}
}

// IDで商品を取得（論理削除済みは見えない）
func (r *CatalogGormRepository) FindItemByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var item model.MenuItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return model.MenuItem{}, translate(err)
	}
	return item, nil
}

// 注文可能な商品だけ
func (r *CatalogGormRepository) ListAvailable(ctx context.Context, restaurantID *int64) ([]model.MenuItem, error) {
	q := r.db.WithContext(ctx).Model(&model.MenuItem{}).Where("is_available = ?", true)
	if restaurantID != nil {
		q = q.Where("restaurant_id = ?", *restaurantID)
	}

	var items []model.MenuItem
	if err := q.Order("restaurant_id asc").Order("category asc").Order("id asc").Find(&items).Error; err != nil {
		return []model.MenuItem{}, err
	}
	return items, nil
}

// 商品削除
func (r *CatalogGormRepository) SoftDeleteItem(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.MenuItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CatalogGormRepository) CreateRestaurant(ctx context.Context, rest *model.Restaurant) error {
	return r.db.WithContext(ctx).Create(rest).Error
}

func (r *CatalogGormRepository) CreateItem(ctx context.Context, item *model.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

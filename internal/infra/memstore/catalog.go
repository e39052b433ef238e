package memstore

import (
	"context"
	"sort"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
)

type CatalogRepository struct {
	h handle
}

func (r *CatalogRepository) FindItemByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var out model.MenuItem
	err := r.h.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok || it.DeletedAt.Valid {
			return repo.ErrNotFound
		}
		out = it
		return nil
	})
	return out, err
}

func (r *CatalogRepository) ListAvailable(ctx context.Context, restaurantID *int64) ([]model.MenuItem, error) {
	out := []model.MenuItem{}
	err := r.h.do(func(st *state) error {
		for _, it := range st.items {
			if it.DeletedAt.Valid || !it.IsAvailable {
				continue
			}
			if restaurantID != nil && it.RestaurantID != *restaurantID {
				continue
			}
			out = append(out, it)
		}
		return nil
	})

	// gorm実装と同じ並び
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RestaurantID != b.RestaurantID {
			return a.RestaurantID < b.RestaurantID
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.ID < b.ID
	})
	return out, err
}

func (r *CatalogRepository) SoftDeleteItem(ctx context.Context, id int64) error {
	return r.h.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok || it.DeletedAt.Valid {
			return repo.ErrNotFound
		}
		it.DeletedAt.Time = r.h.s.now()
		it.DeletedAt.Valid = true
		st.items[id] = it
		return nil
	})
}

func (r *CatalogRepository) CreateRestaurant(ctx context.Context, rest *model.Restaurant) error {
	return r.h.do(func(st *state) error {
		now := r.h.s.now()
		rest.ID = st.nextID()
		rest.CreatedAt, rest.UpdatedAt = now, now
		st.restaurants[rest.ID] = *rest
		return nil
	})
}

func (r *CatalogRepository) CreateItem(ctx context.Context, item *model.MenuItem) error {
	return r.h.do(func(st *state) error {
		now := r.h.s.now()
		item.ID = st.nextID()
		item.CreatedAt, item.UpdatedAt = now, now
		st.items[item.ID] = *item
		return nil
	})
}

// SetAvailability は売り切れ切り替え（テスト用）。
func (r *CatalogRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	return r.h.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return repo.ErrNotFound
		}
		it.IsAvailable = available
		st.items[id] = it
		return nil
	})
}

// SetPrice は価格変更（テスト用）。
func (r *CatalogRepository) SetPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	return r.h.do(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return repo.ErrNotFound
		}
		it.Price = price
		st.items[id] = it
		return nil
	})
}

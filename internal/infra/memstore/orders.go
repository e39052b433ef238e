package memstore

import (
	"context"
	"sort"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

type OrderRepository struct {
	h handle
}

func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.h.do(func(st *state) error {
		if order.IdempotencyKey != nil {
			for _, o := range st.orders {
				if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
					return repo.ErrConflict
				}
			}
		}
		now := r.h.s.now()
		order.ID = st.nextID()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		order.UpdatedAt = now
		st.orders[order.ID] = *order
		return nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var out model.Order
	err := r.h.do(func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var (
		out   model.Order
		found bool
	)
	err := r.h.do(func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
				out, found = o, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	out := []model.Order{}
	err := r.h.do(func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, o)
			}
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func (r *OrderRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	all := []model.Order{}
	err := r.h.do(func(st *state) error {
		for _, o := range st.orders {
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			if f.UserID != nil && o.UserID != *f.UserID {
				continue
			}
			all = append(all, o)
		}
		return nil
	})
	if err != nil {
		return []model.Order{}, 0, err
	}
	sortNewestFirst(all)

	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return []model.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus) error {
	return r.h.do(func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		if o.Status != from {
			return repo.ErrConflict
		}
		o.Status = to
		o.UpdatedAt = r.h.s.now()
		st.orders[orderID] = o
		return nil
	})
}

func sortNewestFirst(orders []model.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

type OrderLineRepository struct {
	h handle
}

func (r *OrderLineRepository) CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error {
	return r.h.do(func(st *state) error {
		now := r.h.s.now()
		for i, l := range lines {
			l.ID = st.nextID()
			l.OrderID = orderID
			l.Position = i
			l.CreatedAt = now
			st.orderLines[orderID] = append(st.orderLines[orderID], l)
		}
		return nil
	})
}

func (r *OrderLineRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var out []model.OrderLine
	err := r.h.do(func(st *state) error {
		out = append([]model.OrderLine{}, st.orderLines[orderID]...)
		return nil
	})
	return out, err
}

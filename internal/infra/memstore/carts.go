package memstore

import (
	"context"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

type CartRepository struct {
	h handle
}

func (r *CartRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var out model.Cart
	err := r.h.do(func(st *state) error {
		for _, c := range st.carts {
			if c.UserID == userID {
				out = c
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

// トランザクションはストア全体のロックなので、行ロックはFindByUserIDと同じ
func (r *CartRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *CartRepository) Create(ctx context.Context, userID int64) (model.Cart, error) {
	var out model.Cart
	err := r.h.do(func(st *state) error {
		for _, c := range st.carts {
			if c.UserID == userID {
				out = c
				return nil
			}
		}
		now := r.h.s.now()
		out = model.Cart{ID: st.nextID(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		st.carts[out.ID] = out
		return nil
	})
	return out, err
}

func (r *CartRepository) ListLines(ctx context.Context, cartID int64) ([]model.CartLine, error) {
	var out []model.CartLine
	err := r.h.do(func(st *state) error {
		out = append([]model.CartLine{}, st.cartLines[cartID]...)
		return nil
	})
	return out, err
}

func (r *CartRepository) ReplaceLines(ctx context.Context, cartID int64, expectedRevision int64, lines []model.CartLine) (int64, error) {
	var rev int64
	err := r.h.do(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok || c.Revision != expectedRevision {
			return repo.ErrConflict
		}

		now := r.h.s.now()
		rows := make([]model.CartLine, 0, len(lines))
		for i, l := range lines {
			rows = append(rows, model.CartLine{
				ID:         st.nextID(),
				CartID:     cartID,
				MenuItemID: l.MenuItemID,
				Quantity:   l.Quantity,
				Position:   i,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		st.cartLines[cartID] = rows

		c.Revision++
		c.UpdatedAt = now
		st.carts[cartID] = c
		rev = c.Revision
		return nil
	})
	return rev, err
}

func (r *CartRepository) Clear(ctx context.Context, cartID int64, expectedRevision int64) error {
	return r.h.do(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return repo.ErrNotFound
		}
		if c.Revision != expectedRevision {
			return repo.ErrConflict
		}
		delete(st.cartLines, cartID)
		c.Revision++
		c.UpdatedAt = r.h.s.now()
		st.carts[cartID] = c
		return nil
	})
}

func (r *CartRepository) RemoveItemFromAll(ctx context.Context, menuItemID int64) (int64, error) {
	var removed int64
	err := r.h.do(func(st *state) error {
		for cartID, lines := range st.cartLines {
			kept := lines[:0:0]
			for _, l := range lines {
				if l.MenuItemID == menuItemID {
					removed++
					continue
				}
				kept = append(kept, l)
			}
			if len(kept) == len(lines) {
				continue
			}
			st.cartLines[cartID] = kept

			c := st.carts[cartID]
			c.Revision++
			c.UpdatedAt = r.h.s.now()
			st.carts[cartID] = c
		}
		return nil
	})
	return removed, err
}

package memstore

import (
	"context"
	"strings"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

type UserRepository struct {
	h handle
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.h.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repo.ErrConflict
			}
		}
		now := r.h.s.now()
		user.ID = st.nextID()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = now
		}
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (model.User, error) {
	var out model.User
	err := r.h.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var out model.User
	err := r.h.do(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = u
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *UserRepository) FindByIDs(ctx context.Context, userIDs []int64) (map[int64]model.User, error) {
	out := make(map[int64]model.User, len(userIDs))
	err := r.h.do(func(st *state) error {
		for _, id := range userIDs {
			if u, ok := st.users[id]; ok {
				out[id] = u
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	return r.h.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		now := r.h.s.now()
		u.LastLoginAt = &now
		st.users[userID] = u
		return nil
	})
}

// BumpTokenVersion は発行済みトークンを無効にする（テスト・運用向け）。
func (r *UserRepository) BumpTokenVersion(ctx context.Context, userID int64) error {
	return r.h.do(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		u.TokenVersion++
		st.users[userID] = u
		return nil
	})
}

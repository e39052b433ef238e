package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/repository"
	auth "foodorder/internal/usecase/auth_usecase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedItem struct {
	name     string
	category string
	price    string
}

var seedMenu = []struct {
	restaurant model.Restaurant
	items      []seedItem
}{
	{
		restaurant: model.Restaurant{Name: "Desi Dhaba", Address: "12 Ring Road", Cuisine: "North Indian"},
		items: []seedItem{
			{"Paneer Tikka", "Starters", "220.00"},
			{"Veg Samosa", "Starters", "40.00"},
			{"Butter Chicken", "Main Course", "320.00"},
			{"Dal Makhani", "Main Course", "240.00"},
			{"Garlic Naan", "Breads", "60.00"},
			{"Sweet Lassi", "Beverages", "80.00"},
		},
	},
	{
		restaurant: model.Restaurant{Name: "Dhaba Express", Address: "4 Station Lane", Cuisine: "Street Food"},
		items: []seedItem{
			{"Pav Bhaji", "Street Food", "150.00"},
			{"Chole Bhature", "Street Food", "180.00"},
			{"Masala Chai", "Beverages", "30.00"},
		},
	},
}

// seed はメニューが空ならデモデータを入れ、スタッフアカウントを用意する。
// 何度実行しても重複しない。
func seed(ctx context.Context, st stores, log *zap.Logger) error {
	existing, err := st.catalog.ListAvailable(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: list menu: %w", err)
	}

	if len(existing) == 0 {
		for _, m := range seedMenu {
			rest := m.restaurant
			if err := st.catalog.CreateRestaurant(ctx, &rest); err != nil {
				return fmt.Errorf("seed: restaurant %s: %w", rest.Name, err)
			}
			for _, it := range m.items {
				item := &model.MenuItem{
					RestaurantID: rest.ID,
					Name:         it.name,
					Category:     it.category,
					Price:        decimal.RequireFromString(it.price),
					IsAvailable:  true,
				}
				if err := st.catalog.CreateItem(ctx, item); err != nil {
					return fmt.Errorf("seed: item %s: %w", it.name, err)
				}
			}
		}
		log.Info("seeded menu", zap.Int("restaurants", len(seedMenu)))
	}

	email := os.Getenv("SEED_STAFF_EMAIL")
	password := os.Getenv("SEED_STAFF_PASSWORD")
	if email == "" || password == "" {
		log.Info("SEED_STAFF_EMAIL/SEED_STAFF_PASSWORD not set; skipping staff account")
		return nil
	}

	if _, err := st.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("seed: find staff: %w", err)
	}

	hashed, err := auth.NewBcryptPasswordHasher(12).Hash(password)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}
	now := time.Now()
	staff := &model.User{
		Name:         "Staff",
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleStaff,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.users.Create(ctx, staff); err != nil {
		return fmt.Errorf("seed: create staff: %w", err)
	}
	log.Info("seeded staff account", zap.String("email", email))
	return nil
}

package db

import (
	"foodorder/internal/domain/model"

	"gorm.io/gorm"
)

// Migrate はテーブルを作成・更新する。
func Migrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&model.User{},
		&model.Restaurant{},
		&model.MenuItem{},
		&model.Cart{},
		&model.CartLine{},
		&model.Order{},
		&model.OrderLine{},
		&model.AuditLog{},
	)
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Address   string         `gorm:"type:varchar(255)" json:"address"`
	Cuisine   string         `gorm:"type:varchar(100)" json:"cuisine"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// メニュー商品。カートの価格計算は常にこの現在価格を使う。
type MenuItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64           `gorm:"not null;index" json:"restaurant_id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Category     string          `gorm:"type:varchar(100)" json:"category"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	IsAvailable  bool            `gorm:"not null" json:"is_available"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

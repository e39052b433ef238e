package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
)

// 注文ステータスを動かせるのはSTAFFだけ
func (r Role) IsStaff() bool {
	return r == RoleStaff
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleStaff
}

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string     `gorm:"type:varchar(30)" json:"phone"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int        `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "Pending"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// 表示順
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// 遷移表。ここに無い遷移はすべて不可。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Delivered / Cancelled からは動かせない
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransition は from → to が遷移表にあるかを返す。
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseOrderStatus は大文字小文字・区切り文字の揺れを吸収してステータスにする。
// "out_for_delivery" / "OUT-FOR-DELIVERY" / "Out for Delivery" はどれも同じ。
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	key := normalizeLabel(raw)
	if key == "" {
		return "", false
	}
	// 綴り違い
	if key == "canceled" {
		key = "cancelled"
	}
	for _, s := range OrderStatuses {
		if normalizeLabel(string(s)) == key {
			return s, true
		}
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "Online"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentMethodCOD || p == PaymentMethodOnline
}

// ParsePaymentMethod は画面やクライアントごとの表記揺れを吸収する。
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch normalizeLabel(raw) {
	case "cod", "cash on delivery", "cashondelivery":
		return PaymentMethodCOD, true
	case "online", "online mock", "onlinemock":
		return PaymentMethodOnline, true
	default:
		return "", false
	}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// 注文。作成後に変わるのはStatusだけ。
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID        string          `gorm:"type:uuid;not null;uniqueIndex" json:"public_id"`
	UserID          int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(32);not null;index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DeliveryAddress string          `gorm:"type:text;not null" json:"delivery_address"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	// 二重送信対策。NULLは何件あってもよい
	IdempotencyKey *string   `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency" json:"-"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文明細（作成時点のスナップショット）。カタログとは切り離す。
type OrderLine struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64           `gorm:"not null;index" json:"order_id"`
	MenuItemID int64           `gorm:"not null" json:"menu_item_id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	Position   int             `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// OrderTotal は作成時に一度だけ計算して凍結する。
func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

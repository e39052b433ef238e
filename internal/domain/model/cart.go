package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 1ユーザーにつきカートは1つ。
// 合計金額は保存しない（毎回カタログの現在価格から計算する）。
type Cart struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;uniqueIndex" json:"user_id"`
	// 書き込みごとに+1。更新は読んだ時点のRevisionが一致するときだけ通す
	Revision  int64     `gorm:"not null;default:0" json:"revision"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// カートの明細。Quantityは常に1以上。
type CartLine struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID     int64     `gorm:"not null;uniqueIndex:idx_cart_lines_cart_item" json:"cart_id"`
	MenuItemID int64     `gorm:"not null;uniqueIndex:idx_cart_lines_cart_item;index" json:"menu_item_id"`
	Quantity   int64     `gorm:"not null" json:"quantity"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// MergeLine は明細の追加・数量変更をまとめて行う。
//   - 既存なし: qtyが1以上ならその数、それ以外は1で追加
//   - 既存あり: qtyがあれば置き換え、なければ+1
//   - 結果が0以下なら明細ごと消す
//
// 元のスライスは変更しない。
func MergeLine(lines []CartLine, menuItemID int64, qty *int64) []CartLine {
	out := make([]CartLine, 0, len(lines)+1)
	found := false

	for _, l := range lines {
		if l.MenuItemID != menuItemID {
			out = append(out, l)
			continue
		}
		found = true

		newQty := l.Quantity + 1
		if qty != nil {
			newQty = *qty
		}
		if newQty <= 0 {
			continue
		}
		l.Quantity = newQty
		out = append(out, l)
	}

	if !found {
		q := int64(1)
		if qty != nil && *qty > 0 {
			q = *qty
		}
		out = append(out, CartLine{MenuItemID: menuItemID, Quantity: q})
	}

	return out
}

// RemoveLine は指定商品の明細を除いたスライスを返す。
// 対象が無ければremovedはfalse。
func RemoveLine(lines []CartLine, menuItemID int64) (out []CartLine, removed bool) {
	out = make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.MenuItemID == menuItemID {
			removed = true
			continue
		}
		out = append(out, l)
	}
	return out, removed
}

// カタログで解決した明細
type PricedLine struct {
	MenuItemID int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	// カタログから削除されていたらfalse（合計に含めない）
	Resolved bool
}

func (p PricedLine) Subtotal() decimal.Decimal {
	if !p.Resolved {
		return decimal.Zero
	}
	return p.UnitPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// CartTotal は解決できた明細の小計を足し合わせる。
func CartTotal(lines []PricedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

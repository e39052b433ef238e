package usecase

import (
	"context"
	"errors"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/logger"
	"foodorder/internal/infra/telemetry"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジックです。
// 合計金額は保存せず、毎回カタログの現在価格から計算します。
type CartUsecase struct {
	carts   repo.CartRepository
	catalog repo.CatalogRepository
	log     *zap.Logger
}

func NewCartUsecase(carts repo.CartRepository, catalog repo.CatalogRepository, log *zap.Logger) *CartUsecase {
	return &CartUsecase{carts: carts, catalog: catalog, log: log}
}

type CartLineOutput struct {
	ItemID    int64           `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Available bool            `json:"available"`
	// カタログから消えた商品。合計には含めない
	Missing bool `json:"missing"`
}

type CartOutput struct {
	Items       []CartLineOutput `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Revision    int64            `json:"revision"`
}

func emptyCart() CartOutput {
	return CartOutput{Items: []CartLineOutput{}, TotalAmount: decimal.Zero}
}

type AddOrUpdateLineInput struct {
	ItemID int64
	// nilなら既存に+1（無ければ1）。値があれば置き換え
	Quantity *int64
	// クライアントが最後に見たrevision（任意）
	Revision *int64
}

// GetCart はカート取得（無ければ空を返す。作らない）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewError(KindUnauthorized, "unauthorized")
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return emptyCart(), nil
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	lines, err := u.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, internalError(err)
	}
	return u.buildCartOutput(ctx, cart, lines)
}

// AddOrUpdateLine は追加・数量変更・0以下での削除をまとめて扱う。
func (u *CartUsecase) AddOrUpdateLine(ctx context.Context, userID int64, in AddOrUpdateLineInput) (out CartOutput, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CartUsecase.AddOrUpdateLine",
		attribute.Int64("user.id", userID),
		attribute.Int64("item.id", in.ItemID),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if userID <= 0 {
		return CartOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if in.ItemID <= 0 {
		return CartOutput{}, NewError(KindValidation, "item_id is required")
	}

	// 商品チェック（売り切れでも追加自体は止めない。注文時に弾く）
	if _, err := u.catalog.FindItemByID(ctx, in.ItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartOutput{}, NewError(KindItemNotFound, "item not found")
		}
		return CartOutput{}, internalError(err)
	}

	// カートが無ければここで作る
	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		cart, err = u.carts.Create(ctx, userID)
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	if in.Revision != nil && *in.Revision != cart.Revision {
		return CartOutput{}, u.conflict(ctx, cart.ID, "cart has changed; reload and retry")
	}

	lines, err := u.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	next := model.MergeLine(lines, in.ItemID, in.Quantity)

	rev, err := u.carts.ReplaceLines(ctx, cart.ID, cart.Revision, next)
	if errors.Is(err, repo.ErrConflict) {
		return CartOutput{}, u.conflict(ctx, cart.ID, "cart was modified concurrently; reload and retry")
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}
	cart.Revision = rev

	return u.buildCartOutput(ctx, cart, next)
}

// RemoveLine は明細削除。明細が無くてもエラーにしない。
func (u *CartUsecase) RemoveLine(ctx context.Context, userID int64, itemID int64) (out CartOutput, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CartUsecase.RemoveLine",
		attribute.Int64("user.id", userID),
		attribute.Int64("item.id", itemID),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if userID <= 0 {
		return CartOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartOutput{}, NewError(KindValidation, "invalid item id")
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartOutput{}, NewError(KindCartNotFound, "cart not found")
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	lines, err := u.carts.ListLines(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	next, removed := model.RemoveLine(lines, itemID)
	if !removed {
		return u.buildCartOutput(ctx, cart, lines)
	}

	rev, err := u.carts.ReplaceLines(ctx, cart.ID, cart.Revision, next)
	if errors.Is(err, repo.ErrConflict) {
		return CartOutput{}, u.conflict(ctx, cart.ID, "cart was modified concurrently; reload and retry")
	}
	if err != nil {
		return CartOutput{}, internalError(err)
	}
	cart.Revision = rev

	return u.buildCartOutput(ctx, cart, next)
}

// ClearCart は明細を全て消す。カートが無ければ何もしない。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewError(KindUnauthorized, "unauthorized")
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError(err)
	}

	err = u.carts.Clear(ctx, cart.ID, cart.Revision)
	switch {
	case err == nil, errors.Is(err, repo.ErrNotFound):
		return nil
	case errors.Is(err, repo.ErrConflict):
		return u.conflict(ctx, cart.ID, "cart was modified concurrently; reload and retry")
	}
	return internalError(err)
}

func (u *CartUsecase) conflict(ctx context.Context, cartID int64, msg string) error {
	logger.FromContext(ctx, u.log).Info("cart conflict", zap.Int64("cart_id", cartID))
	return NewError(KindConflict, msg)
}

// 明細を現在のカタログ価格で解決してCartOutputを作る。
// 消えた商品は明細として残し、合計からは外す。
func (u *CartUsecase) buildCartOutput(ctx context.Context, cart model.Cart, lines []model.CartLine) (CartOutput, error) {
	items := make([]CartLineOutput, 0, len(lines))
	priced := make([]model.PricedLine, 0, len(lines))

	for _, l := range lines {
		pl := model.PricedLine{MenuItemID: l.MenuItemID, Quantity: l.Quantity}
		row := CartLineOutput{ItemID: l.MenuItemID, Quantity: l.Quantity}

		item, err := u.catalog.FindItemByID(ctx, l.MenuItemID)
		switch {
		case err == nil:
			pl.UnitPrice = item.Price
			pl.Resolved = true
			row.Name = item.Name
			row.UnitPrice = item.Price
			row.Available = item.IsAvailable
		case errors.Is(err, repo.ErrNotFound):
			row.Missing = true
			row.UnitPrice = decimal.Zero
		default:
			return CartOutput{}, internalError(err)
		}

		row.Subtotal = pl.Subtotal()
		priced = append(priced, pl)
		items = append(items, row)
	}

	return CartOutput{
		Items:       items,
		TotalAmount: model.CartTotal(priced),
		Revision:    cart.Revision,
	}, nil
}

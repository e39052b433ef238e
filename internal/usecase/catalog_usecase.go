package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/logger"
	repo "foodorder/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogUsecase はメニュー閲覧とスタッフによる商品削除。
type CatalogUsecase struct {
	catalog repo.CatalogRepository
	tx      repo.TransactionManager
	clock   Clock
	log     *zap.Logger
}

func NewCatalogUsecase(catalog repo.CatalogRepository, tx repo.TransactionManager, clock Clock, log *zap.Logger) *CatalogUsecase {
	return &CatalogUsecase{catalog: catalog, tx: tx, clock: clock, log: log}
}

type MenuItemOutput struct {
	ID           int64           `json:"id"`
	RestaurantID int64           `json:"restaurant_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
}

// ListMenu は注文可能な商品一覧。
func (u *CatalogUsecase) ListMenu(ctx context.Context, restaurantID *int64) ([]MenuItemOutput, error) {
	if restaurantID != nil && *restaurantID <= 0 {
		return []MenuItemOutput{}, NewError(KindValidation, "invalid restaurant_id")
	}

	items, err := u.catalog.ListAvailable(ctx, restaurantID)
	if err != nil {
		return []MenuItemOutput{}, internalError(err)
	}

	outs := make([]MenuItemOutput, 0, len(items))
	for _, it := range items {
		outs = append(outs, MenuItemOutput{
			ID:           it.ID,
			RestaurantID: it.RestaurantID,
			Name:         it.Name,
			Category:     it.Category,
			Price:        it.Price,
			Available:    it.IsAvailable,
		})
	}
	return outs, nil
}

// DeleteItem は商品を論理削除し、全カートから同じ商品の明細を消す。
// 既存の注文明細はスナップショットなので影響しない。
func (u *CatalogUsecase) DeleteItem(ctx context.Context, actor Actor, itemID int64) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if itemID <= 0 {
		return NewError(KindValidation, "invalid id")
	}

	var pruned int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.Catalog().FindItemByID(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindItemNotFound, "item not found")
		}
		if err != nil {
			return internalError(err)
		}

		if err := r.Catalog().SoftDeleteItem(ctx, itemID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindItemNotFound, "item not found")
			}
			return internalError(err)
		}

		pruned, err = r.Carts().RemoveItemFromAll(ctx, itemID)
		if err != nil {
			return internalError(err)
		}

		before, _ := json.Marshal(item)
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionDeleteMenuItem,
			ResourceType: model.AuditResourceMenuItem,
			ResourceID:   itemID,
			BeforeJSON:   string(before),
			AfterJSON:    `{"deleted":true}`,
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx, u.log).Info("menu item deleted",
		zap.Int64("item_id", itemID),
		zap.Int64("cart_lines_removed", pruned),
		zap.Int64("actor_user_id", actor.UserID),
	)
	return nil
}

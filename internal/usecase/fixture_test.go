package usecase_test

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/memstore"
	"foodorder/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// storeFixture はメモリ実装の上にusecase一式を組む。
type storeFixture struct {
	store   *memstore.Store
	clock   *tickingClock
	cart    *usecase.CartUsecase
	orders  *usecase.OrderUsecase
	admin   *usecase.AdminOrderUsecase
	catalog *usecase.CatalogUsecase

	// シードした商品
	samosa model.MenuItem // 40.00
	naan   model.MenuItem // 60.00
	lassi  model.MenuItem // 80.00
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	s := memstore.New()
	clock := &tickingClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	log := zap.NewNop()

	f := &storeFixture{
		store:   s,
		clock:   clock,
		cart:    usecase.NewCartUsecase(s.Carts(), s.Catalog(), log),
		orders:  usecase.NewOrderUsecase(s.TxManager(), s.Orders(), s.OrderLines(), &seqIDs{}, clock, log),
		admin:   usecase.NewAdminOrderUsecase(s.TxManager(), s.Users(), clock, log),
		catalog: usecase.NewCatalogUsecase(s.Catalog(), s.TxManager(), clock, log),
	}
	f.samosa = f.addItem(t, "Veg Samosa", "40.00", true)
	f.naan = f.addItem(t, "Garlic Naan", "60.00", true)
	f.lassi = f.addItem(t, "Sweet Lassi", "80.00", true)
	return f
}

func (f *storeFixture) addItem(t *testing.T, name, price string, available bool) model.MenuItem {
	t.Helper()
	item := &model.MenuItem{
		RestaurantID: 1,
		Name:         name,
		Category:     "Menu",
		Price:        decimal.RequireFromString(price),
		IsAvailable:  available,
	}
	require.NoError(t, f.store.Catalog().CreateItem(context.Background(), item))
	return *item
}

func (f *storeFixture) add(t *testing.T, userID int64, itemID int64, qty *int64) usecase.CartOutput {
	t.Helper()
	out, err := f.cart.AddOrUpdateLine(context.Background(), userID, usecase.AddOrUpdateLineInput{ItemID: itemID, Quantity: qty})
	require.NoError(t, err)
	return out
}

func qty(n int64) *int64 { return &n }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

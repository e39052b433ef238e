package repository

import (
	"context"

	repo "foodorder/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderLines repo.OrderLineRepository
	carts      repo.CartRepository
	catalog    repo.CatalogRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderLines() repo.OrderLineRepository { return r.orderLines }
func (r *txReposGorm) Carts() repo.CartRepository           { return r.carts }
func (r *txReposGorm) Catalog() repo.CatalogRepository      { return r.catalog }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	var fnErr error
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx),
			orderLines: NewOrderLineGormRepository(tx),
			carts:      NewCartGormRepository(tx),
			catalog:    NewCatalogGormRepository(tx),
			auditLogs:  NewAuditLogGormRepository(tx),
		}
		fnErr = fn(r)
		return fnErr
	})
	if err == nil || err == fnErr {
		return err
	}
	// begin/commitの失敗
	return translate(err)
}

var (
	_ repo.CatalogRepository   = (*CatalogGormRepository)(nil)
	_ repo.CartRepository      = (*CartGormRepository)(nil)
	_ repo.OrderRepository     = (*OrderGormRepository)(nil)
	_ repo.OrderLineRepository = (*OrderLineGormRepository)(nil)
	_ repo.UserRepository      = (*UserGormRepository)(nil)
	_ repo.AuditLogRepository  = (*AuditLogGormRepository)(nil)
	_ repo.TransactionManager  = (*TxManagerGorm)(nil)
)

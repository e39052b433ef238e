// Package memstore はrepositoryのインメモリ実装。
// STORE_DRIVER=memory のローカル起動とテストで使う。
package memstore

import (
	"context"
	"sync"
	"time"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"
)

type state struct {
	seq int64

	users       map[int64]model.User
	restaurants map[int64]model.Restaurant
	items       map[int64]model.MenuItem
	carts       map[int64]model.Cart
	cartLines   map[int64][]model.CartLine
	orders      map[int64]model.Order
	orderLines  map[int64][]model.OrderLine
	auditLogs   []model.AuditLog
}

func newState() *state {
	return &state{
		users:       map[int64]model.User{},
		restaurants: map[int64]model.Restaurant{},
		items:       map[int64]model.MenuItem{},
		carts:       map[int64]model.Cart{},
		cartLines:   map[int64][]model.CartLine{},
		orders:      map[int64]model.Order{},
		orderLines:  map[int64][]model.OrderLine{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// ロールバック用の複製。値型なのでスライスだけ作り直す
func (s *state) clone() *state {
	c := &state{
		seq:         s.seq,
		users:       make(map[int64]model.User, len(s.users)),
		restaurants: make(map[int64]model.Restaurant, len(s.restaurants)),
		items:       make(map[int64]model.MenuItem, len(s.items)),
		carts:       make(map[int64]model.Cart, len(s.carts)),
		cartLines:   make(map[int64][]model.CartLine, len(s.cartLines)),
		orders:      make(map[int64]model.Order, len(s.orders)),
		orderLines:  make(map[int64][]model.OrderLine, len(s.orderLines)),
		auditLogs:   append([]model.AuditLog(nil), s.auditLogs...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartLines {
		c.cartLines[k] = append([]model.CartLine(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = append([]model.OrderLine(nil), v...)
	}
	return c
}

// Store は全テーブル分の状態を1つのロックで守る。
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// inTxがtrueのときは呼び出し元（WithinTx）がロック済み
type handle struct {
	s    *Store
	inTx bool
}

func (h handle) do(fn func(st *state) error) error {
	if !h.inTx {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	return fn(h.s.st)
}

func (s *Store) Users() *UserRepository           { return &UserRepository{handle{s: s}} }
func (s *Store) Catalog() *CatalogRepository      { return &CatalogRepository{handle{s: s}} }
func (s *Store) Carts() *CartRepository           { return &CartRepository{handle{s: s}} }
func (s *Store) Orders() *OrderRepository         { return &OrderRepository{handle{s: s}} }
func (s *Store) OrderLines() *OrderLineRepository { return &OrderLineRepository{handle{s: s}} }
func (s *Store) AuditLogs() *AuditLogRepository   { return &AuditLogRepository{handle{s: s}} }
func (s *Store) TxManager() *TxManager            { return &TxManager{s: s} }

type txRepos struct {
	h handle
}

func (r txRepos) Orders() repo.OrderRepository         { return &OrderRepository{r.h} }
func (r txRepos) OrderLines() repo.OrderLineRepository { return &OrderLineRepository{r.h} }
func (r txRepos) Carts() repo.CartRepository           { return &CartRepository{r.h} }
func (r txRepos) Catalog() repo.CatalogRepository      { return &CatalogRepository{r.h} }
func (r txRepos) AuditLogs() repo.AuditLogRepository   { return &AuditLogRepository{r.h} }

type TxManager struct {
	s *Store
}

// WithinTx はロックを取ったままfnを実行し、エラーなら開始前の状態に戻す。
func (tm *TxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.s.mu.Lock()
	defer tm.s.mu.Unlock()

	snapshot := tm.s.st.clone()
	if err := fn(txRepos{h: handle{s: tm.s, inTx: true}}); err != nil {
		tm.s.st = snapshot
		return err
	}
	return nil
}

var (
	_ repo.CatalogRepository   = (*CatalogRepository)(nil)
	_ repo.CartRepository      = (*CartRepository)(nil)
	_ repo.OrderRepository     = (*OrderRepository)(nil)
	_ repo.OrderLineRepository = (*OrderLineRepository)(nil)
	_ repo.UserRepository      = (*UserRepository)(nil)
	_ repo.AuditLogRepository  = (*AuditLogRepository)(nil)
	_ repo.TransactionManager  = (*TxManager)(nil)
)

package main

import (
	"context"
	"fmt"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/handler"
	"foodorder/internal/infra/db"
	"foodorder/internal/infra/logger"
	"foodorder/internal/infra/memstore"
	infraRepo "foodorder/internal/infra/repository"
	"foodorder/internal/infra/telemetry"
	"foodorder/internal/infra/token"
	"foodorder/internal/repository"
	"foodorder/internal/server"
	"foodorder/internal/usecase"
	auth "foodorder/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// stores はSTORE_DRIVERで選んだrepository一式。
type stores struct {
	users      repository.UserRepository
	catalog    repository.CatalogRepository
	carts      repository.CartRepository
	orders     repository.OrderRepository
	orderLines repository.OrderLineRepository
	tx         repository.TransactionManager
	close      func() error
}

func openStores(cfg config.Config, log *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		m := memstore.New()
		return stores{
			users:      m.Users(),
			catalog:    m.Catalog(),
			carts:      m.Carts(),
			orders:     m.Orders(),
			orderLines: m.OrderLines(),
			tx:         m.TxManager(),
			close:      func() error { return nil },
		}, nil
	}

	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return stores{}, fmt.Errorf("connect db: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return stores{}, err
	}

	return stores{
		users:      infraRepo.NewUserGormRepository(gormDB),
		catalog:    infraRepo.NewCatalogGormRepository(gormDB),
		carts:      infraRepo.NewCartGormRepository(gormDB),
		orders:     infraRepo.NewOrderGormRepository(gormDB),
		orderLines: infraRepo.NewOrderLineGormRepository(gormDB),
		tx:         infraRepo.NewTxManagerGorm(gormDB),
		close:      sqlDB.Close,
	}, nil
}

func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runServe() error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := telemetry.Setup(appName, cfg.TracingEnabled, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	// メモリ実装は起動のたびに空なのでデモデータを入れる
	if cfg.StoreDriver == config.StoreDriverMemory {
		if err := seed(context.Background(), st, log); err != nil {
			return err
		}
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer, err := token.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(st.users, hasher, clock)
	loginUC := auth.NewLoginUsecase(st.users, verifier, issuer, clock, log)
	catalogUC := usecase.NewCatalogUsecase(st.catalog, st.tx, clock, log)
	cartUC := usecase.NewCartUsecase(st.carts, st.catalog, log)
	orderUC := usecase.NewOrderUsecase(st.tx, st.orders, st.orderLines, idGen, clock, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(st.tx, st.users, clock, log)

	//Handler生成
	h := server.Handlers{
		Auth:       handler.NewAuthHandler(registerUC, loginUC),
		Menu:       handler.NewMenuHandler(catalogUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
		AdminMenu:  handler.NewAdminMenuHandler(catalogUC),
	}

	e := server.New(cfg, log, st.users, h)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	return server.Start(e, addr, log)
}

func runMigrate() error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Info("memory store has no schema; nothing to migrate")
		return nil
	}

	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migration completed")
	return nil
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	return seed(ctx, st, log)
}

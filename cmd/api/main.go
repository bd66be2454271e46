package main

import (
	"database/sql"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Badr070118/lupeti-backend/internal/cart"
	"github.com/Badr070118/lupeti-backend/internal/config"
	"github.com/Badr070118/lupeti-backend/internal/events"
	"github.com/Badr070118/lupeti-backend/internal/middleware"
	"github.com/Badr070118/lupeti-backend/internal/order"
	"github.com/Badr070118/lupeti-backend/internal/payment"
	"github.com/Badr070118/lupeti-backend/internal/product"
	"github.com/Badr070118/lupeti-backend/internal/user"
	"github.com/Badr070118/lupeti-backend/internal/validation"
)

// main wires dependencies (dependency injection) and starts the HTTP server.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	app := fiber.New()
	setupCORS(app)
	app.Use(middleware.Logger(logger))
	app.Use(middleware.Metrics())
	middleware.ServeMetrics(cfg.MetricsAddr, logger)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.InitProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer, cfg.OrderEventsTopic, logger)
	}

	paytrCfg := payment.Config{
		MerchantID:   cfg.PayTRMerchantID,
		MerchantKey:  cfg.PayTRMerchantKey,
		MerchantSalt: cfg.PayTRMerchantSalt,
		Currency:     cfg.Currency,
	}

	var (
		userRepo    user.Repository
		productRepo product.Repository
		cartRepo    cart.Repository
		orderRepo   order.Repository
		store       payment.Store
	)
	if cfg.DatabaseURL != "" {
		db := mustOpenDB(cfg.DatabaseURL)
		defer db.Close()
		if err := migrate(db); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}

		userRepo = user.NewPostgresRepository(db)
		productRepo = product.NewPostgresRepository(db)
		cartRepo = cart.NewPostgresRepository(db)
		orderRepo = order.NewPostgresRepository(db)
		store = payment.NewPostgresStore(db)
	} else {
		// local/dev mode; the callback ledger still has to survive
		// restarts, hence the bolt file
		logger.Warn("DATABASE_URL is not set, using in-memory storage")
		memOrders := order.NewInMemoryRepository()
		memProducts := product.NewInMemoryRepository(nil)
		ledger, err := payment.NewBoltLedger(cfg.LedgerPath)
		if err != nil {
			logger.Fatal("failed to open callback ledger", zap.Error(err))
		}
		defer ledger.Close()

		userRepo = user.NewInMemoryRepository(nil)
		productRepo = memProducts
		cartRepo = cart.NewInMemoryRepository()
		orderRepo = memOrders
		store = payment.NewMemoryStore(memOrders, memProducts, ledger)
	}

	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService, cfg.JWTSecret)

	productService := product.NewService(productRepo)
	productHandler := product.NewHandler(productService)

	cartService := cart.NewService(cartRepo)
	cartHandler := cart.NewHandler(cartService)

	orderService := order.NewService(orderRepo, productService, cartService, publisher, logger, cfg.Currency)
	orderHandler := order.NewHandler(orderService)

	validate := validation.New()
	initiator := payment.NewInitiator(paytrCfg, store, orderRepo, logger)
	reconciler := payment.NewReconciler(paytrCfg, store, orderRepo, publisher, logger)
	paymentHandler := payment.NewHandler(initiator, reconciler, validate, logger)

	userHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	// the provider callback authenticates via its keyed hash, not a JWT
	paymentHandler.RegisterPublicRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))

	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	paymentHandler.RegisterProtectedRoutes(app)

	logger.Info("starting server", zap.String("addr", cfg.Addr))
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

func mustOpenDB(dbURL string) *sql.DB {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		panic(err)
	}

	if err := db.Ping(); err != nil {
		panic(err)
	}

	return db
}

// migrate bootstraps the schema. Statements are idempotent so restarting
// against an existing database is safe.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			cart jsonb NOT NULL DEFAULT '{}',
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS product (
			product_id SERIAL PRIMARY KEY,
			product_name TEXT NOT NULL,
			product_name_en TEXT,
			category TEXT,
			product_desc TEXT NOT NULL DEFAULT '',
			product_desc_en TEXT,
			product_pic TEXT,
			price_cents BIGINT NOT NULL,
			original_price_cents BIGINT,
			discount_type TEXT,
			discount_value BIGINT,
			promo_start_at TIMESTAMPTZ,
			promo_end_at TIMESTAMPTZ,
			stock INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id SERIAL PRIMARY KEY,
			user_id INT NOT NULL,
			status TEXT NOT NULL,
			total_cents BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_line (
			order_id INT NOT NULL,
			line_no INT NOT NULL,
			product_id INT NOT NULL,
			title_snapshot TEXT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (order_id, line_no)
		)`,
		`CREATE TABLE IF NOT EXISTS payment_attempt (
			merchant_oid TEXT PRIMARY KEY,
			order_id INT NOT NULL,
			provider_status TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			hash TEXT NOT NULL,
			fail_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS processed_callback (
			merchant_oid TEXT NOT NULL,
			event_hash TEXT NOT NULL,
			order_status TEXT NOT NULL,
			ack TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (merchant_oid, event_hash)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Package main provides the main entry point for the ShuleGate notification gateway
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kwameosei/shulegate/app/handlers"
	"github.com/kwameosei/shulegate/app/middleware"
	"github.com/kwameosei/shulegate/app/router"
	"github.com/kwameosei/shulegate/app/scheduler"
	"github.com/kwameosei/shulegate/app/services"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting ShuleGate application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Route the standard logger through the configured rotating writer
	configureLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// configureLogging points the standard logger at stdout, a rotating file, or both
func configureLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(rotating)
	default: // both
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if client == nil {
		return cancel
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeTransportService selects the SMS provider based on configuration
func initializeTransportService(cfg *config.ProductionConfig) services.TransportService {
	if cfg.Transport.ProviderDomain == "mock" {
		return services.NewMockTransportService()
	}
	return services.NewTransportService(&cfg.Transport)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
	stopFuncs = append(stopFuncs, cancel)

	// Backfill wallets and policies for tenants provisioned out of band
	if err := ensureTenantProvisioning(db); err != nil {
		return nil, err
	}

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	balanceSnapshotRepo := repository.NewBalanceSnapshotRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	policyRepo := repository.NewNotificationPolicyRepository(db)
	dispatchLogRepo := repository.NewDispatchLogRepository(db)

	// Initialize services
	transportService := initializeTransportService(cfg)
	credentialService := services.NewCredentialService(cfg.Security.BcryptCost)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	policyFlow := businessflow.NewPolicyFlow(
		policyRepo,
		tenantRepo,
		rc,
		&cfg.Cache,
	)

	dispatchFlow := businessflow.NewDispatchFlow(
		tenantRepo,
		walletRepo,
		balanceSnapshotRepo,
		transactionRepo,
		dispatchLogRepo,
		policyFlow,
		transportService,
		&cfg.Dispatch,
		db,
	)

	walletFlow := businessflow.NewWalletFlow(
		walletRepo,
		balanceSnapshotRepo,
		transactionRepo,
		dispatchLogRepo,
		db,
	)

	authFlow := businessflow.NewAuthFlow(
		tenantRepo,
		credentialService,
		tokenService,
		cfg.JWT.AccessTokenTTL,
	)

	triggers := businessflow.NewTriggers(dispatchFlow)

	// Initialize handlers
	dispatchHandler := handlers.NewDispatchHandler(dispatchFlow)
	policyHandler := handlers.NewPolicyHandler(policyFlow)
	walletHandler := handlers.NewWalletHandler(walletFlow)
	authHandler := handlers.NewAuthHandler(authFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		dispatchHandler,
		policyHandler,
		walletHandler,
		authHandler,
		authMiddleware,
	)

	if cfg.Scheduler.Enabled {
		source := scheduler.NewFileReminderSource(cfg.Scheduler.FeeReminderFile)
		sched := scheduler.NewFeeReminderScheduler(
			tenantRepo,
			source,
			triggers,
			cfg.Scheduler.FeeReminderInterval,
			cfg.Scheduler.FeeReminderWorkers,
		)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureTenantProvisioning creates the wallet and default policy rows for any
// active tenant missing them. Tenants are provisioned out of band, so a row
// can exist before its wallet does.
func ensureTenantProvisioning(db *gorm.DB) error {
	ctx := context.Background()
	tenantRepo := repository.NewTenantRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	policyRepo := repository.NewNotificationPolicyRepository(db)

	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		tenants, err := tenantRepo.ListActiveTenants(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		if len(tenants) == 0 {
			return nil
		}

		for _, tenant := range tenants {
			wallet, err := walletRepo.ByTenantID(ctx, tenant.ID)
			if err != nil {
				return err
			}
			if wallet == nil {
				if err := walletRepo.SaveWithInitialSnapshot(ctx, &models.Wallet{TenantID: tenant.ID}); err != nil {
					return err
				}
				log.Printf("Provisioned wallet for tenant %s", tenant.Slug)
			}

			policy, err := policyRepo.ByTenantID(ctx, tenant.ID)
			if err != nil {
				return err
			}
			if policy == nil {
				if err := policyRepo.Save(ctx, models.DefaultPolicy(tenant.ID)); err != nil {
					return err
				}
				log.Printf("Provisioned default notification policy for tenant %s", tenant.Slug)
			}
		}

		if len(tenants) < pageSize {
			return nil
		}
	}
}

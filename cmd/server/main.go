package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	webAdapter "vendor-pipeline/internal/adapters/web"
	"vendor-pipeline/internal/app"
	"vendor-pipeline/internal/cache"
	"vendor-pipeline/internal/config"
	"vendor-pipeline/internal/core"
	"vendor-pipeline/internal/db"
	"vendor-pipeline/internal/jobs"
	"vendor-pipeline/internal/vendorapi"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	var groupCache core.GroupCache = cache.NoopGroupCache{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisGroupCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, consolidation cache disabled", zap.Error(err))
		} else {
			groupCache = redisCache
			defer redisCache.Close()
		}
	}

	client := vendorapi.NewClient(cfg.VendorAPI, logger.Named("vendorapi"))

	store := core.NewOrderStore(pool)
	catalog := core.NewCatalogService(pool, cfg.Seller.WarehouseCode)
	acks := core.NewAcknowledgmentService(pool, store, catalog, catalog, client)
	consolidation := core.NewConsolidationService(store, groupCache)
	invoices := core.NewInvoiceService(pool, store, client)
	remittances := core.NewRemittanceService(pool, cfg.Seller.InvoicePrefix)
	chargebacks := core.NewChargebackService(pool)
	users := core.NewUserService(pool)

	svc := app.NewAppService(store, acks, consolidation, invoices, remittances, chargebacks, users)

	pipeline := jobs.NewPipeline(logger.Named("jobs"), store, client, acks, invoices, client, remittances, core.NewERPSalesOrderCreator(pool))
	runner := jobs.NewRunner(logger.Named("jobs"))
	runner.Register("poll-orders", cfg.Jobs.PollInterval, pipeline.PollOrders)
	runner.Register("acknowledge-pending", cfg.Jobs.AcknowledgeInterval, pipeline.AcknowledgePending)
	runner.Register("submit-pending-invoices", cfg.Jobs.SubmitInterval, pipeline.SubmitPendingInvoices)
	runner.Register("poll-remittances", cfg.Jobs.RemittanceInterval, pipeline.PollRemittances)
	runner.Register("erp-sync", cfg.Jobs.ErpSyncInterval, pipeline.SyncERPOrders)
	runner.Start(ctx)

	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, logger.Named("http"))

	server := &http.Server{Addr: ":" + cfg.Port, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
	runner.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	cataloghttp "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/http"
	catalogmemory "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/persistence/postgres"
	catalogapp "github.com/shopkit-go/shop-api-server/internal/domains/catalog/application"
	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membershttp "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/http"
	membersmemory "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/memory"
	memberspostgres "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/persistence/postgres"
	membersapp "github.com/shopkit-go/shop-api-server/internal/domains/members/application"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	ordershttp "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/http"
	ordersmemory "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/memory"
	ordersobs "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/persistence/postgres"
	ordersworkflows "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/shopkit-go/shop-api-server/internal/domains/orders/application"
	ordersports "github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/platform/migrations"
	platformobservability "github.com/shopkit-go/shop-api-server/internal/platform/observability"
	platformpostgres "github.com/shopkit-go/shop-api-server/internal/platform/postgres"
	"github.com/shopkit-go/shop-api-server/internal/platform/seed"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// Run boots the shop HTTP API with observability, repositories, and
// workflows wired.
func Run(ctx context.Context) error {
	const serviceName = "shop-api"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	memberService := membersapp.NewService(stores.uow, stores.members)
	catalogService := catalogapp.NewService(stores.uow, stores.catalog)

	orderOpts := []ordersapp.Option{}
	if cfg.OrderBatchFetchSize > 0 {
		orderOpts = append(orderOpts, ordersapp.WithBatchSize(cfg.OrderBatchFetchSize))
	}
	coreOrderService := ordersapp.NewService(stores.uow, stores.orders, stores.members, stores.catalog, orderOpts...)
	orderService := ordersobs.New(
		coreOrderService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	var orchestrator ordersports.PlacementOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService)
	if temporalClient, err := connectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, placing orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orchestrator = ordersworkflows.NewTemporalOrderWorkflows(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	if cfg.SeedDemoData {
		loader := seed.NewLoader(stores.uow, stores.members, stores.catalog, stores.orders, logger)
		if err := loader.Run(ctx); err != nil {
			return err
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	membershttp.NewHandler(memberService).Register(router)
	cataloghttp.NewHandler(catalogService).Register(router)
	ordershttp.NewHandler(orderService, orchestrator).Register(router)

	addr := ":" + cfg.Port
	logger.Info("shop API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("shop API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// stores bundles the unit of work manager with the repositories bound to the
// same backend. They switch together: a GORM unit of work cannot serve an
// in-memory repository or the other way round.
type stores struct {
	uow     unitofwork.Manager
	members membersports.Repository
	catalog catalogports.Repository
	orders  ordersports.Repository
}

func buildStores(ctx context.Context, cfg Config, logger *slog.Logger) (stores, func(), error) {
	db, cleanup := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger)
	if db == nil {
		memberRepo := membersmemory.NewRepository()
		catalogRepo := catalogmemory.NewRepository()
		return stores{
			uow:     unitofwork.NewNopManager(),
			members: memberRepo,
			catalog: catalogRepo,
			orders:  ordersmemory.NewRepository(memberRepo, catalogRepo),
		}, cleanup, nil
	}
	if err := migrations.Run(db); err != nil {
		cleanup()
		return stores{}, func() {}, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return stores{
		uow:     platformuow.NewManager(db),
		members: memberspostgres.NewRepository(),
		catalog: catalogpostgres.NewRepository(),
		orders:  orderspostgres.NewRepository(),
	}, cleanup, nil
}

func connectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.Default()
}

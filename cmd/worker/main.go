package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	catalogmemory "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/memory"
	catalogpostgres "github.com/shopkit-go/shop-api-server/internal/domains/catalog/adapters/persistence/postgres"
	catalogports "github.com/shopkit-go/shop-api-server/internal/domains/catalog/ports"
	membersmemory "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/memory"
	memberspostgres "github.com/shopkit-go/shop-api-server/internal/domains/members/adapters/persistence/postgres"
	membersports "github.com/shopkit-go/shop-api-server/internal/domains/members/ports"
	ordersmemory "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/memory"
	orderspostgres "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/shopkit-go/shop-api-server/internal/domains/orders/application"
	ordersports "github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	"github.com/shopkit-go/shop-api-server/internal/platform/migrations"
	platformobservability "github.com/shopkit-go/shop-api-server/internal/platform/observability"
	platformpostgres "github.com/shopkit-go/shop-api-server/internal/platform/postgres"
	orderactivities "github.com/shopkit-go/shop-api-server/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/shopkit-go/shop-api-server/internal/platform/temporal/workflows/orders"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

func main() {
	ctx := context.Background()
	const serviceName = "shop-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	uow, memberRepo, catalogRepo, orderRepo, cleanupRepo := buildStores(ctx, logger)
	defer cleanupRepo()
	orderService := ordersapp.NewService(uow, orderRepo, memberRepo, catalogRepo)
	orderActivities := orderactivities.NewActivities(orderService)

	tracerOptions := temporalotel.TracerOptions{Tracer: instruments.Tracer("temporal-worker")}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		logger.Error("failed to configure Temporal tracing interceptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	clientOptions := client.Options{
		HostPort:  envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		Logger:    workerlog.NewStructuredLogger(logger),
	}
	clientOptions.Interceptors = append(clientOptions.Interceptors, tracingInterceptor)
	temporalClient, err := client.Dial(clientOptions)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderPlacementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderPlacementWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderPlacementWorkflowName})
	w.RegisterActivityWithOptions(orderActivities.PlaceOrder, activity.RegisterOptions{Name: orderactivities.PlaceOrderActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderPlacementTaskQueue), slog.String("namespace", clientOptions.Namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildStores(ctx context.Context, logger *slog.Logger) (unitofwork.Manager, membersports.Repository, catalogports.Repository, ordersports.Repository, func()) {
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	db, cleanup := platformpostgres.ConnectOptional(ctx, dsn, logger)
	if db == nil {
		memberRepo := membersmemory.NewRepository()
		catalogRepo := catalogmemory.NewRepository()
		return unitofwork.NewNopManager(), memberRepo, catalogRepo, ordersmemory.NewRepository(memberRepo, catalogRepo), cleanup
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("worker failed to apply migrations (falling back to memory)", slog.String("error", err.Error()))
		cleanup()
		memberRepo := membersmemory.NewRepository()
		catalogRepo := catalogmemory.NewRepository()
		return unitofwork.NewNopManager(), memberRepo, catalogRepo, ordersmemory.NewRepository(memberRepo, catalogRepo), func() {}
	}
	logger.Info("worker repositories configured with postgres")
	return platformuow.NewManager(db), memberspostgres.NewRepository(), catalogpostgres.NewRepository(), orderspostgres.NewRepository(), cleanup
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

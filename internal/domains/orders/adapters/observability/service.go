package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
)

const tracerName = "github.com/shopkit-go/shop-api-server/internal/domains/orders/adapters/observability/service"

// Service decorates the orders application port with tracing, logging, and
// metrics. The strategy attribute on search spans is what makes the round
// trip profiles of the query plans comparable in traces.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// PlaceOrder runs the placement use case with instrumentation.
func (s *Service) PlaceOrder(ctx context.Context, input ports.PlaceOrderInput) (int64, error) {
	ctx, span := s.startSpan(ctx, "Service.PlaceOrder",
		attribute.Int64("order.member_id", input.MemberID),
		attribute.Int64("order.item_id", input.ItemID),
		attribute.Int("order.count", input.Count),
	)
	defer span.End()

	s.logInfo(ctx, "placing order", slog.Int64("member_id", input.MemberID), slog.Int64("item_id", input.ItemID))
	orderID, err := s.inner.PlaceOrder(ctx, input)
	if err != nil {
		return 0, s.handleError(ctx, span, err, "failed to place order", slog.Int64("member_id", input.MemberID))
	}
	span.SetAttributes(attribute.Int64("order.id", orderID))
	s.metrics.recordPlaced(ctx)
	s.logInfo(ctx, "order placed", slog.Int64("order_id", orderID))
	return orderID, nil
}

// CancelOrder cancels an order and restores its stock.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	ctx, span := s.startSpan(ctx, "Service.CancelOrder", attribute.Int64("order.id", orderID))
	defer span.End()

	s.logInfo(ctx, "cancelling order", slog.Int64("order_id", orderID))
	if err := s.inner.CancelOrder(ctx, orderID); err != nil {
		return s.handleError(ctx, span, err, "failed to cancel order", slog.Int64("order_id", orderID))
	}
	s.metrics.recordCancelled(ctx)
	s.logInfo(ctx, "order cancelled", slog.Int64("order_id", orderID))
	return nil
}

// GetOrder loads a single order summary.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*ports.OrderSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.Int64("order.id", orderID))
	defer span.End()

	summary, err := s.inner.GetOrder(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.Int64("order_id", orderID))
	}
	return summary, nil
}

// Search materializes orders through the requested query strategy.
func (s *Service) Search(ctx context.Context, input ports.SearchInput) ([]ports.OrderSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.Search", attribute.String("order.search.strategy", string(input.Strategy)))
	defer span.End()

	s.logInfo(ctx, "searching orders", slog.String("strategy", string(input.Strategy)))
	result, err := s.inner.Search(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to search orders", slog.String("strategy", string(input.Strategy)))
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	s.metrics.recordSearch(ctx, input.Strategy)
	s.logInfo(ctx, "orders searched", slog.String("strategy", string(input.Strategy)), slog.Int("count", len(result)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	ordersPlaced    metric.Int64Counter
	ordersCancelled metric.Int64Counter
	orderSearches   metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersPlaced, _ := m.Int64Counter("orders.service.placed", metric.WithDescription("Number of orders placed"))
	ordersCancelled, _ := m.Int64Counter("orders.service.cancelled", metric.WithDescription("Number of orders cancelled"))
	orderSearches, _ := m.Int64Counter("orders.service.searches", metric.WithDescription("Number of order searches by strategy"))
	return serviceMetrics{
		ordersPlaced:    ordersPlaced,
		ordersCancelled: ordersCancelled,
		orderSearches:   orderSearches,
	}
}

func (m serviceMetrics) recordPlaced(ctx context.Context) {
	addCounter(ctx, m.ordersPlaced, 1)
}

func (m serviceMetrics) recordCancelled(ctx context.Context) {
	addCounter(ctx, m.ordersCancelled, 1)
}

func (m serviceMetrics) recordSearch(ctx context.Context, strategy ports.Strategy) {
	addCounter(ctx, m.orderSearches, 1, attribute.String("order.search.strategy", string(strategy)))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)

// Package telemetry owns the process-wide logger and tracer construction
// that cmd/schedctl performs once at startup, adapted from the teacher's
// cmd/*/main.go zap setup and internal/gateway/tracing/tracer.go. It is
// distinct from internal/sched's own package-internal telemetry helper,
// which only latches a warn-once logger default and a no-op-by-default
// tracer; this package is what actually installs a production logger and
// registers a global TracerProvider when tracing is enabled.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	schedtelemetry "github.com/aetherflow/mpsched/internal/sched"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"Level"`  // debug, info, warn, error
	Format string `yaml:"Format"` // json, console
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enable       bool    `yaml:"Enable"`
	ServiceName  string  `yaml:"ServiceName"`
	Endpoint     string  `yaml:"Endpoint"`
	Exporter     string  `yaml:"Exporter"` // jaeger, zipkin
	SampleRate   float64 `yaml:"SampleRate"`
	Environment  string  `yaml:"Environment"`
	BatchTimeout int     `yaml:"BatchTimeout"`
	MaxQueueSize int     `yaml:"MaxQueueSize"`
}

// NewLogger builds the process-wide logger from cfg.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var base *zap.Config
	if cfg.Format == "console" {
		c := zap.NewDevelopmentConfig()
		base = &c
	} else {
		c := zap.NewProductionConfig()
		base = &c
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		base.Level = level
	}

	logger, err := base.Build()
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build logger: %w", err)
	}
	return logger, nil
}

// Provider wraps the installed TracerProvider for orderly shutdown.
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// InitTracing installs a global TracerProvider per cfg and wires
// internal/sched's logger to logger. When cfg.Enable is false this only
// wires the logger and otherwise does nothing, leaving otel's default
// no-op TracerProvider in place.
func InitTracing(cfg TracingConfig, logger *zap.Logger) (*Provider, error) {
	schedtelemetry.SetLogger(logger)

	if !cfg.Enable {
		logger.Info("tracing disabled")
		return &Provider{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "jaeger":
		exporter, err = jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	case "zipkin":
		exporter, err = zipkin.New(cfg.Endpoint)
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	batcher := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(time.Duration(cfg.BatchTimeout)*time.Second),
		sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithSpanProcessor(batcher),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("exporter", cfg.Exporter),
		zap.Float64("sample_rate", cfg.SampleRate))

	return &Provider{sdk: provider}, nil
}

// Shutdown flushes and releases the installed TracerProvider, if any.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

package telemetry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewLoggerJSON(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewLoggerConsole(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestInitTracingDisabled(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	provider, err := InitTracing(TracingConfig{Enable: false}, logger)
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	if provider == nil {
		t.Fatal("expected a non-nil provider even when tracing is disabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() on a disabled provider should be a no-op, got %v", err)
	}
}

func TestInitTracingJaeger(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	provider, err := InitTracing(TracingConfig{
		Enable:       true,
		ServiceName:  "test-service",
		Endpoint:     "http://localhost:14268/api/traces",
		Exporter:     "jaeger",
		SampleRate:   1.0,
		Environment:  "test",
		BatchTimeout: 5,
		MaxQueueSize: 2048,
	}, logger)
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(ctx)
	}()
}

func TestInitTracingUnsupportedExporter(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	if _, err := InitTracing(TracingConfig{Enable: true, Exporter: "carrier-pigeon"}, logger); err == nil {
		t.Error("expected an error for an unsupported exporter")
	}
}

func TestShutdownNilProvider(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on a nil *Provider should be a no-op, got %v", err)
	}
}

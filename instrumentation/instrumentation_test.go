package instrumentation

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew_Defaults(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if inst.Metrics() == nil {
		t.Fatal("Metrics() = nil")
	}
	if inst.Meter("http") == nil {
		t.Error("Meter() = nil")
	}
	if inst.Tracer("flow") == nil {
		t.Error("Tracer() = nil")
	}
}

func TestNew_EnabledWiresSDKProviders(t *testing.T) {
	inst, err := New(Config{ServiceName: "test", Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := inst.MeterProvider().(*sdkmetric.MeterProvider); !ok {
		t.Errorf("MeterProvider() = %T, want *sdkmetric.MeterProvider", inst.MeterProvider())
	}
	if _, ok := inst.TracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("TracerProvider() = %T, want *sdktrace.TracerProvider", inst.TracerProvider())
	}

	ctx := context.Background()
	inst.Metrics().RecordHTTPRequest(ctx, "GET", "/authorize", 200, 1.5)
	RecordFlowOutcome(ctx, inst.Metrics().TokenIssued, true)

	// Shutdown must flush both SDK providers
	if err := inst.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_DisabledUsesNoopProviders(t *testing.T) {
	inst, err := New(Config{ServiceName: "test", Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := inst.MeterProvider().(noop.MeterProvider); !ok {
		t.Errorf("MeterProvider() = %T, want noop.MeterProvider", inst.MeterProvider())
	}
	if _, ok := inst.TracerProvider().(tracenoop.TracerProvider); !ok {
		t.Errorf("TracerProvider() = %T, want tracenoop.TracerProvider", inst.TracerProvider())
	}
}

func TestNew_DisabledIsUsable(t *testing.T) {
	inst, err := New(Config{ServiceName: "test", Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// No-op providers must accept records without panicking
	ctx := context.Background()
	inst.Metrics().RecordHTTPRequest(ctx, "GET", "/authorize", 200, 1.5)
	RecordFlowOutcome(ctx, inst.Metrics().CallbackProcessed, true)
	RecordFlowOutcome(ctx, inst.Metrics().CallbackProcessed, false)

	if err := inst.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	inst, err := New(Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := inst.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() call %d error = %v", i, err)
		}
	}
}

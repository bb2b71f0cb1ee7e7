package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := DefaultConfig("2.1.0")

	if cfg.ServiceName != "atlassian-mcp-server" {
		t.Errorf("Expected ServiceName 'atlassian-mcp-server', got %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "2.1.0" {
		t.Errorf("Expected ServiceVersion '2.1.0', got %q", cfg.ServiceVersion)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected Environment 'development', got %q", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg := DefaultConfig("1.0.0")

	if cfg.Environment != "production" {
		t.Errorf("Expected Environment 'production', got %q", cfg.Environment)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("Expected OTLPEndpoint 'localhost:4318', got %q", cfg.OTLPEndpoint)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSetup_DifferentSampleRates(t *testing.T) {
	for _, rate := range []float64{1.0, 0.0, 0.5, 1.5, -0.5} {
		shutdown, err := Setup(context.Background(), Config{
			ServiceName:    "test-service",
			ServiceVersion: "1.0.0",
			Environment:    "test",
			Enabled:        true,
			SampleRate:     rate,
		})
		if err != nil {
			t.Fatalf("Setup(rate=%v) failed: %v", rate, err)
		}
		_ = shutdown(context.Background())
	}
}

func TestNewResource_MergesWithDefault(t *testing.T) {
	res, err := newResource(Config{ServiceName: "atlassian-mcp-server", ServiceVersion: "1.2.3", Environment: "test"})
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}

	attrs := attrMap(res.Attributes())
	if got := attrs["service.name"].AsString(); got != "atlassian-mcp-server" {
		t.Errorf("service.name = %q, want atlassian-mcp-server", got)
	}
	if got := attrs["service.version"].AsString(); got != "1.2.3" {
		t.Errorf("service.version = %q, want 1.2.3", got)
	}
	if got := attrs["environment"].AsString(); got != "test" {
		t.Errorf("environment = %q, want test", got)
	}
}

func TestSetup_EnabledFromEnvironment(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), DefaultConfig("1.0.0"))
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	_ = shutdown(context.Background())
}

// withRecorder installs an in-memory tracer provider for the duration of the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestAddToolAttributes(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartSpan(context.Background(), "mcp.tool.jira_get_issue")
	AddToolAttributes(span, "jira_get_issue", "jira", true)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	attrs := attrMap(ended[0].Attributes())
	if attrs["mcp.tool.name"].AsString() != "jira_get_issue" {
		t.Errorf("unexpected tool name attr: %v", attrs["mcp.tool.name"])
	}
	if attrs["mcp.tool.backend"].AsString() != "jira" {
		t.Errorf("unexpected backend attr: %v", attrs["mcp.tool.backend"])
	}
	if !attrs["mcp.tool.readonly"].AsBool() {
		t.Error("expected readonly attr to be true")
	}
}

func TestAddBackendAndResourceAttributes(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartSpan(context.Background(), "atlassian.request")
	AddBackendAttributes(span, "confluence", "GET", "/rest/api/content/123")
	AddResourceAttributes(span, "confluence://ENG", "wiki", "container_listing")
	span.End()

	attrs := attrMap(rec.Ended()[0].Attributes())
	if attrs["atlassian.api.path"].AsString() != "/rest/api/content/123" {
		t.Errorf("unexpected path attr: %v", attrs["atlassian.api.path"])
	}
	if attrs["mcp.resource.kind"].AsString() != "container_listing" {
		t.Errorf("unexpected kind attr: %v", attrs["mcp.resource.kind"])
	}
}

func TestRecordError(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-error")
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
	span.End()

	got := rec.Ended()[0]
	if got.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", got.Status().Code)
	}
	if len(got.Events()) != 1 {
		t.Errorf("expected one recorded exception event, got %d", len(got.Events()))
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_GET_ENV_KEY", "custom-value")
	t.Setenv("TEST_GET_ENV_KEY_EMPTY", "")

	if got := getEnvOrDefault("TEST_GET_ENV_KEY", "default"); got != "custom-value" {
		t.Errorf("Expected 'custom-value', got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_EMPTY", "default"); got != "default" {
		t.Errorf("Expected 'default', got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_UNSET_XYZ", "default"); got != "default" {
		t.Errorf("Expected 'default', got %q", got)
	}
}

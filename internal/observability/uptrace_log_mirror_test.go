package observability

import (
	"errors"
	"testing"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	if !shouldSkipUptraceLog("http_request", map[string]any{"http_path": "/healthz"}) {
		t.Fatalf("expected health check log to be skipped")
	}
	if shouldSkipUptraceLog("http_request", map[string]any{"http_path": "/v1/rankings/players"}) {
		t.Fatalf("did not expect non-health log to be skipped")
	}
	if shouldSkipUptraceLog("ranking fetch failed", map[string]any{"http_path": "/healthz"}) {
		t.Fatalf("did not expect non-http_request event to be skipped")
	}
}

func TestBuildOTelLogAttributes_FromZapFields(t *testing.T) {
	fields := encodeFields(
		[]zapcore.Field{zap.String("variant", "scorers")},
		[]zapcore.Field{zap.Int("attempt", 2), zap.Error(errors.New("boom"))},
	)
	attrs := buildOTelLogAttributes(fields)
	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}

	// attributes are sorted by key
	if attrs[0].Key != "attempt" || attrs[0].Value.AsInt64() != 2 {
		t.Fatalf("unexpected attempt attribute: %+v", attrs[0])
	}
	if attrs[1].Key != "error" || attrs[1].Value.AsString() != "boom" {
		t.Fatalf("unexpected error attribute: %+v", attrs[1])
	}
	if attrs[2].Key != "variant" || attrs[2].Value.AsString() != "scorers" {
		t.Fatalf("unexpected variant attribute: %+v", attrs[2])
	}
}

func TestToOTelLogValue_Map(t *testing.T) {
	v := toOTelLogValue(map[string]any{
		"goals":  11,
		"keeper": true,
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	if items := v.AsMap(); len(items) != 2 {
		t.Fatalf("expected 2 map items, got %d", len(items))
	}
	if toOTelLogValue(nil, 0).Kind() != otellog.KindEmpty {
		t.Fatalf("nil must map to an empty value")
	}
}

func TestOTelLogCore_RespectsLevel(t *testing.T) {
	core := newOTelLogCore("test", zapcore.WarnLevel)
	if core.Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be filtered below warn")
	}
	if !core.Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error must pass a warn threshold")
	}

	child := core.With([]zapcore.Field{zap.String("component", "rankingapi")})
	if err := child.Write(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "fetch failed"}, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
}

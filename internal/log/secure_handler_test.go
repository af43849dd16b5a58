package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler_SanitizesSensitiveKeys tests that sensitive keys are masked.
func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "authorization key is masked", key: "authorization", value: "Bearer abc123", wantMask: true},
		{name: "Authorization key (uppercase) is masked", key: "Authorization", value: "abc123", wantMask: true},
		{name: "bearer_token key is masked", key: "bearer_token", value: "abc123", wantMask: true},
		{name: "dsn key is masked", key: "dsn", value: "host=db user=crawler", wantMask: true},
		{name: "database_url key is masked", key: "database_url", value: "db.internal", wantMask: true},
		{name: "key containing password is masked", key: "db_password", value: "hunter2", wantMask: true},
		{name: "cookie key is masked", key: "cookie", value: "session=abc123", wantMask: true},
		{name: "target key is NOT masked", key: "target", value: "1095706", wantMask: false},
		{name: "title key is NOT masked", key: "title", value: "Jesus", wantMask: false},
		{name: "reason key is NOT masked", key: "reason", value: "missing_field", wantMask: false},
		{name: "continuation key is NOT masked", key: "continuation", value: "0|300", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()
			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value %q to be masked, got: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask value in output, got: %s", output)
				}
			} else if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q in output, got: %s", tt.value, output)
			}
		})
	}
}

// TestIsSensitiveValue tests value patterns.
func TestIsSensitiveValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "bearer header value", value: "Bearer eyabc.def", want: true},
		{name: "basic header value", value: "Basic dXNlcjpwYXNz", want: true},
		{name: "jwt", value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", want: true},
		{name: "postgres url with password", value: "postgres://crawler:hunter2@db:5432/graph", want: true},
		{name: "key value dsn with password", value: "host=db user=crawler password=hunter2", want: true},
		{name: "postgres url without password", value: "postgres://db:5432/graph", want: false},
		{name: "api endpoint", value: "https://en.wikipedia.org/w/api.php", want: false},
		{name: "sqlite path", value: "/home/user/.local/share/linkcrawl/linkcrawl.db", want: false},
		{name: "plain title", value: "Jesus", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isSensitiveValue(tt.value); got != tt.want {
				t.Errorf("isSensitiveValue(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestSecureHandler_LogLevels tests the verbose switch.
func TestSecureHandler_LogLevels(t *testing.T) {
	t.Parallel()

	t.Run("quiet logger drops info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Info("resolved page")
		logger.Warn("fetch failed")

		output := buf.String()
		if strings.Contains(output, "resolved page") {
			t.Errorf("info should be dropped: %s", output)
		}
		if !strings.Contains(output, "fetch failed") {
			t.Errorf("warn should be kept: %s", output)
		}
	})

	t.Run("verbose logger keeps debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, true)
		logger.Debug("offering stub")

		if !strings.Contains(buf.String(), "offering stub") {
			t.Errorf("debug should be kept: %s", buf.String())
		}
	})
}

// TestSecureHandler_WithAttrs tests masking of attributes bound with With.
func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true).With("bearer_token", "abc123", "stage", "fetcher")
	logger.Info("request")

	output := buf.String()
	if strings.Contains(output, "abc123") {
		t.Errorf("bound token leaked: %s", output)
	}
	if !strings.Contains(output, "stage=fetcher") {
		t.Errorf("bound stage missing: %s", output)
	}
}

// TestSecureHandler_WithGroup tests masking inside groups.
func TestSecureHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)
	logger.Info("request", slog.Group("headers", slog.String("Authorization", "Bearer abc123")))

	if strings.Contains(buf.String(), "abc123") {
		t.Errorf("grouped header leaked: %s", buf.String())
	}

	buf.Reset()
	logger.WithGroup("store").Info("opened", "dsn", "postgres://u:p@h/db")
	if strings.Contains(buf.String(), "u:p@h") {
		t.Errorf("grouped dsn leaked: %s", buf.String())
	}
}

// TestNewSecureJSONLogger tests JSON output with masking.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureJSONLogger(&buf, false)
	logger.Warn("fetch failed", "target", "100", "authorization", "Bearer abc123")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["target"] != "100" {
		t.Errorf("unexpected target: %v", record["target"])
	}
	if record["authorization"] != MaskValue {
		t.Errorf("expected masked authorization, got %v", record["authorization"])
	}
}

// TestNewSecureHandler_NilHandler tests the default fallback.
func TestNewSecureHandler_NilHandler(t *testing.T) {
	t.Parallel()

	h := NewSecureHandler(nil)
	if h.handler == nil {
		t.Error("expected default handler")
	}
}

package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New(Options{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestNew_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "debug", Format: "json", Out: buf})

	log.Debug().Str("symbol", "PETR4").Msg("fetching")

	output := buf.String()
	if !strings.Contains(output, `"symbol":"PETR4"`) {
		t.Errorf("Expected JSON field in output, got: %s", output)
	}
	if !strings.Contains(output, `"level":"debug"`) {
		t.Errorf("Expected debug level in output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithUser(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(WithUser(ctx, 42))
	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"user_id":42`) {
		t.Errorf("Expected user_id field, got: %s", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"run_id": "abc",
		"kind":   "history_refresh",
	})
	log.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "run_id") || !strings.Contains(output, "abc") {
		t.Errorf("Expected output to contain run_id field, got: %s", output)
	}
	if !strings.Contains(output, "history_refresh") {
		t.Errorf("Expected output to contain kind field, got: %s", output)
	}
}

package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		if _, err := NewLogger(env, Options{}); err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
		}
	}
	if _, err := NewLogger("staging", Options{}); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", Options{Level: "debug"})
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug to be enabled")
	}

	if _, err := NewLogger("prod", Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNewLogger_Format(t *testing.T) {
	if _, err := NewLogger("local", Options{Format: "json"}); err != nil {
		t.Errorf("json format: %v", err)
	}
	if _, err := NewLogger("prod", Options{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	ctx := ContextWithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")
	if logs.Len() != 1 {
		t.Errorf("expected the stored logger to be used, got %d entries", logs.Len())
	}

	// No logger stored: the fallback is used, or a no-op when the fallback is nil.
	FromContextOr(context.Background(), l).Info("fallback")
	if logs.FilterMessage("fallback").Len() != 1 {
		t.Error("expected the fallback logger to be used")
	}
	FromContextOr(context.Background(), nil).Info("dropped")
	FromContext(context.Background()).Info("dropped")
	if logs.FilterMessage("dropped").Len() != 0 {
		t.Error("expected no-op loggers without a stored logger")
	}
}

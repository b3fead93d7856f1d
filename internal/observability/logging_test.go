package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/fieldops/maintenance-service/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG", Format: "console", Service: "maintenance-service"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level not enabled")
	}

	logger, err = NewLogger(config.LoggerConfig{Level: "loud"})
	if err != nil {
		t.Fatalf("NewLogger with bad level: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) || !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("bad level should fall back to info")
	}

	if _, err := NewLogger(config.LoggerConfig{Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
}

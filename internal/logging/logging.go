package logging

import (
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "pos-service-go"

// New builds the service logger. Development mode switches to a console
// encoder; otherwise logs are JSON on stdout. Entries are also bridged to the
// global OpenTelemetry logger provider, which is a no-op until one is set.
func New(level string, development bool) (*zap.Logger, error) {
	return newLogger(os.Stdout, level, development)
}

func newLogger(w io.Writer, level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	consoleCore := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), lvl)
	otelCore := levelFilter{
		Core:  otelzap.NewCore(ServiceName, otelzap.WithLoggerProvider(global.GetLoggerProvider())),
		level: lvl,
	}

	return zap.New(zapcore.NewTee(consoleCore, otelCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", ServiceName)),
	), nil
}

// levelFilter applies the configured level to a core that has no level of its own.
type levelFilter struct {
	zapcore.Core
	level zapcore.LevelEnabler
}

func (f levelFilter) Enabled(l zapcore.Level) bool {
	return f.level.Enabled(l) && f.Core.Enabled(l)
}

func (f levelFilter) With(fields []zapcore.Field) zapcore.Core {
	return levelFilter{Core: f.Core.With(fields), level: f.level}
}

func (f levelFilter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !f.level.Enabled(ent.Level) {
		return ce
	}
	return f.Core.Check(ent, ce)
}

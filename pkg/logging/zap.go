package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapOptions selects level, encoding and destination for the zap backend.
type ZapOptions struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" (default) or "console"
	Output string // "stdout" (default) or "stderr"
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds the process-wide Logger on top of zap. The returned
// sync function flushes buffered entries and belongs in a defer at the top
// of main.
func NewZapLogger(options ZapOptions) (Logger, func() error, error) {
	level, err := zapcore.ParseLevel(options.Level)
	if err != nil {
		if options.Level != "" {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", options.Level, err)
		}
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch options.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json", "":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("unknown log format: %s", options.Format)
	}

	var writeSyncer zapcore.WriteSyncer
	switch options.Output {
	case "stderr":
		writeSyncer = zapcore.Lock(zapcore.AddSync(os.Stderr))
	case "stdout", "":
		writeSyncer = zapcore.Lock(zapcore.AddSync(os.Stdout))
	default:
		return nil, nil, fmt.Errorf("unknown log output: %s", options.Output)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	logger := zap.New(core)

	return &zapLogger{sugar: logger.Sugar()}, logger.Sync, nil
}

func (z *zapLogger) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...interface{}) {
	z.sugar.Infof(format, args...)
}

func (z *zapLogger) Warnf(format string, args ...interface{}) {
	z.sugar.Warnf(format, args...)
}

func (z *zapLogger) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(format, args...)
}

package observability

import (
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskforge/task-manager/internal/config"
)

// NewLogger creates a structured zap.Logger configured via env settings.
// When cfg.File is set every entry is also written to a rotated file; the
// returned cleanup closes it.
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		LevelKey:   "level",
		TimeKey:    "ts",
		CallerKey:  "caller",
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(l.String())
		},
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	if cfg.File == "" {
		return logger, func() { _ = logger.Sync() }, nil
	}

	writer, err := newRotatingWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(writer), level)
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))

	cleanup := func() {
		_ = logger.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

func newRotatingWriter(cfg config.LoggerConfig) (*rotatelogs.RotateLogs, error) {
	maxAge := time.Duration(cfg.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	rotation := time.Duration(cfg.RotationHours) * time.Hour
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}

	ext := filepath.Ext(cfg.File)
	pattern := strings.TrimSuffix(cfg.File, ext) + ".%Y%m%d%H" + ext
	return rotatelogs.New(pattern,
		rotatelogs.WithLinkName(cfg.File),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotation),
	)
}

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envLocal       = "local"
	envDevelopment = "development"
)

// New creates a zap logger for the given environment.
// local/development get a human readable console logger at debug level,
// everything else gets the JSON production logger.
func New(env string) *zap.Logger {
	var cfg zap.Config

	switch env {
	case envLocal, envDevelopment:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		// конфиг статический, ошибка здесь означает сломанную сборку
		return zap.NewExample()
	}

	return log.With(zap.String("env", env))
}

package logger

import (
	"edushare/internal/config"
	"edushare/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the zap logger and attaches the activity-log sink.
// Warn and above are mirrored into the activity_logs collection so
// storage-integrity signals stay visible to operators.
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	writer := NewActivityWriter(mongodb, cfg)

	finalCore := NewActivityCore(baseLogger.Core(), writer)

	return zap.New(finalCore, zap.AddCaller()), nil
}

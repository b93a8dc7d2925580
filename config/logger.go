package config

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger from cfg. The returned level can be changed
// at runtime.
func NewLogger(cfg LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("config: logging level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("config: build logger: %w", err)
	}
	return logger.Named("qstate"), level, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

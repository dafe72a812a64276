package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger appropriate for the environment: structured
// JSON in production, console output locally.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

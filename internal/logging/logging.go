package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds the process logger. Development mode switches to the console
// encoder with stack traces on warnings; otherwise JSON output is used.
func New(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	return cfg.Build()
}

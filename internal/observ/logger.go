// Package observ builds the process logger.
package observ

import "go.uber.org/zap"

// NewLogger builds a zap logger for the given environment. "dev" gets the
// console development encoder; everything else gets production JSON. level
// overrides the config default when it parses; an empty or bad level is
// ignored rather than failing startup.
func NewLogger(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = lvl
		}
	}
	return cfg.Build()
}

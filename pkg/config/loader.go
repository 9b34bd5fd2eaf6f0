package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check cross-field
// constraints after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into the provided struct using its
// `env` tags, then runs Validate when the struct implements Validator.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	return LoadWithOptions(cfg, env.Options{})
}

// LoadWithPrefix is Load with every variable name prefixed, for example
// "CATALOG_" so two services can share one environment.
func LoadWithPrefix(cfg any, prefix string) error {
	return LoadWithOptions(cfg, env.Options{Prefix: prefix})
}

// LoadWithOptions exposes the underlying env options.
func LoadWithOptions(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using its
// `env` and `envDefault` tags.
//
//	type Config struct {
//	    Port    int           `env:"HTTP_PORT" envDefault:"3000"`
//	    Timeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" default:"racklab.db"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"change-me-jwt-secret"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`

	// CancelForfeitWindow is the late-cancellation policy knob: cancelling
	// less than this long before start forfeits the refund. Zero means a
	// full refund regardless of proximity to start.
	CancelForfeitWindow time.Duration `envconfig:"CANCEL_FORFEIT_WINDOW" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import "time"

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`

	// Authentication
	JWTSecret          string        `mapstructure:"JWT_SECRET" yaml:"jwt_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"ACCESS_TOKEN_TTL" yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"REFRESH_TOKEN_TTL" yaml:"refresh_token_ttl"`
	RefreshTokenRotate bool          `mapstructure:"REFRESH_TOKEN_ROTATE" yaml:"refresh_token_rotate"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

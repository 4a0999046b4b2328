package config

import (
	"errors"
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	Env         string
	LogLevel    string
	HTTP        HTTPConfig
	GRPC        GRPCConfig
}

// IsProduction reports whether APP_ENV selects production, where in-memory
// fallbacks for external collaborators are refused.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: strings.TrimSpace(os.Getenv("SERVICE_NAME")),
		Env:         strings.TrimSpace(os.Getenv("APP_ENV")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		HTTP: HTTPConfig{
			Addr: strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		},
		GRPC: GRPCConfig{
			Addr: strings.TrimSpace(os.Getenv("GRPC_ADDR")),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = ":9090"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

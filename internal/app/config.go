package app

import (
	"github.com/clawbackhq/clawback-backend/internal/platform/envutil"
)

type Config struct {
	Port        string
	MetricsAddr string
	RedisAddr   string
	Environment string
	Version     string
}

func LoadConfig() Config {
	return Config{
		Port:        envutil.Str("PORT", "8080"),
		MetricsAddr: envutil.Str("METRICS_ADDR", ":9464"),
		RedisAddr:   envutil.Str("REDIS_ADDR", ""),
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
	}
}

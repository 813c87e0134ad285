package app

import (
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
	"github.com/yungbote/hansard-backend/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        utils.GetEnv("PORT", "8080", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	}
}

package application

import (
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/covergate/internal/domain"
)

// loadConfig loads config from path. A missing file yields an empty config
// when allowMissing is set and ErrConfigNotFound otherwise.
func loadConfig(loader ConfigLoader, configPath string, allowMissing bool) (Config, error) {
	if loader == nil {
		if allowMissing {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: no config loader", domain.ErrConfig)
	}
	exists, err := loader.Exists(configPath)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		if allowMissing {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	return loader.Load(configPath)
}

// override returns flagValues when set, otherwise the configured values.
func override(flagValues, configured []string) []string {
	if len(flagValues) > 0 {
		return flagValues
	}
	return configured
}

func overrideString(flagValue, configured, fallback string) string {
	switch {
	case flagValue != "":
		return flagValue
	case configured != "":
		return configured
	default:
		return fallback
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// requireReports rejects a verification without any binary report.
func requireReports(reports []string) error {
	if len(reports) == 0 {
		return fmt.Errorf("%w: no coverage reports given", domain.ErrConfig)
	}
	return nil
}

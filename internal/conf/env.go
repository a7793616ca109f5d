// env.go - Environment variable configuration for SLRealizer
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by SLRealizer
const EnvPrefix = "SLREALIZER"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", EnvPrefix + "_DEBUG", validateEnvBool},
		{"logging.defaultlevel", EnvPrefix + "_LOG_LEVEL", validateEnvLogLevel},

		{"realize.seed", EnvPrefix + "_SEED", validateEnvUint},
		{"realize.workers", EnvPrefix + "_WORKERS", validateEnvNonNegativeInt},
		{"realize.method", EnvPrefix + "_METHOD", nil},

		{"datastore.enabled", EnvPrefix + "_DATASTORE_ENABLED", validateEnvBool},
		{"datastore.type", EnvPrefix + "_DATASTORE_TYPE", nil},
		{"datastore.sqlite.path", EnvPrefix + "_SQLITE_PATH", nil},
		{"datastore.mysql.host", EnvPrefix + "_MYSQL_HOST", nil},
		{"datastore.mysql.username", EnvPrefix + "_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", EnvPrefix + "_MYSQL_PASSWORD", nil},
		{"datastore.mysql.passwordfile", EnvPrefix + "_MYSQL_PASSWORD_FILE", nil},

		{"metrics.textfile", EnvPrefix + "_METRICS_TEXTFILE", nil},

		{"telemetry.enabled", EnvPrefix + "_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", EnvPrefix + "_SENTRY_DSN", nil},
		{"telemetry.dsnfile", EnvPrefix + "_SENTRY_DSN_FILE", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvUint(value string) error {
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return fmt.Errorf("must be an unsigned integer")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}

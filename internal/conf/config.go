// config.go: settings struct for SLRealizer and functions to load and print it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// RelativeNoise is a Gaussian relative perturbation N(Mean, Std)
type RelativeNoise struct {
	Mean float64 // mean of the relative offset, usually 0
	Std  float64 // standard deviation of the relative offset
}

// GridSettings describes the pixel grid used by the pixel renderer
type GridSettings struct {
	Width      int     // grid width in pixels
	Height     int     // grid height in pixels
	PixelScale float64 // arcsec per pixel
}

// RealizeSettings controls the lens x epoch cross product
type RealizeSettings struct {
	Seed             uint64 // base seed for per-pair generators
	Workers          int    // number of workers, 0 uses all CPUs
	Method           string // render method: pixel or analytic
	Grid             GridSettings
	ProgressInterval int // log progress every N completed epochs, 0 disables
}

// NoiseSettings holds the calibrated noise model
type NoiseSettings struct {
	Flux           RelativeNoise
	FirstMoment    RelativeNoise
	SecondMoment   RelativeNoise
	AstrometricStd float64 // degrees, 1 sigma of the astrometric error
	FieldRadius    float64 // degrees, half-width of the uniform field dither
}

// Pointing is a sky position in degrees
type Pointing struct {
	RA  float64
	DEC float64
}

// NightFilterSettings restricts epochs to astronomical night at a site
type NightFilterSettings struct {
	Enabled   bool
	Latitude  float64
	Longitude float64
}

// SurveySettings controls observation history selection
type SurveySettings struct {
	MaxMJD         float64  // epochs at or after this MJD are skipped
	ExcludeFilters []string // bands never realized
	Pointing       Pointing // used when an epoch has no field centre
	NightFilter    NightFilterSettings
}

// OutputSettings holds output table paths
type OutputSettings struct {
	Source     string // source table CSV path
	Object     string // object table CSV path
	IncludeStd bool   // add per-band sample standard deviations to the object table
}

// SQLiteSettings for the SQLite sink
type SQLiteSettings struct {
	Path string
}

// MySQLSettings for the MySQL sink
type MySQLSettings struct {
	Host         string
	Port         string
	Username     string
	Password     string // may hold ${VAR} references
	PasswordFile string // file holding the password, takes precedence over Password
	Database     string
}

// DatastoreSettings controls the optional database sink
type DatastoreSettings struct {
	Enabled   bool
	Type      string // sqlite or mysql
	BatchSize int
	SQLite    SQLiteSettings
	MySQL     MySQLSettings
}

// MetricsSettings controls metrics export
type MetricsSettings struct {
	Textfile string // Prometheus textfile path, empty disables export
}

// TelemetrySettings controls Sentry error reporting
type TelemetrySettings struct {
	Enabled bool
	DSN     string // may hold ${VAR} references
	DSNFile string // file holding the DSN, takes precedence over DSN
}

// PaintSettings controls the synthetic lens catalog painter
type PaintSettings struct {
	Count        int     // number of systems
	Seed         uint64  // painter seed
	QuadFraction float64 // fraction of quads, the rest are doubles
	FirstID      int     // LENSID of the first painted system
}

// InputConfig holds command line inputs, never stored in the config file
type InputConfig struct {
	Catalog      string // lens catalog path
	Observations string // observation history path
	Source       string // source table used by the object command
	LensID       int    // draw command lens
	Epoch        int    // draw command epoch, negative picks one at random
}

// Settings contains all configuration options for SLRealizer
type Settings struct {
	Debug bool // true to enable debug logging

	// Runtime values, not stored in config file
	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Logging logger.LoggingConfig

	Input InputConfig `yaml:"-"`

	Realize   RealizeSettings
	Noise     NoiseSettings
	Survey    SurveySettings
	Output    OutputSettings
	Datastore DatastoreSettings
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
	Paint     PaintSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the optional config file and environment variables
// into a Settings instance. An empty configFile searches the default paths;
// a missing file there is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// resolveSecrets replaces credential settings with the values they refer to
func resolveSecrets(settings *Settings) error {
	if settings.Datastore.Enabled && settings.Datastore.Type == "mysql" {
		pw, err := secrets.Resolve(settings.Datastore.MySQL.PasswordFile, settings.Datastore.MySQL.Password)
		if err != nil {
			return fmt.Errorf("datastore.mysql.password: %w", err)
		}
		settings.Datastore.MySQL.Password = pw
	}
	if settings.Telemetry.Enabled {
		dsn, err := secrets.Resolve(settings.Telemetry.DSNFile, settings.Telemetry.DSN)
		if err != nil {
			return fmt.Errorf("telemetry.dsn: %w", err)
		}
		settings.Telemetry.DSN = dsn
	}
	return nil
}

// GetSettings returns the last loaded settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "slrealizer"))
	}
	return paths
}

// DefaultConfig returns the embedded default config.yaml
func DefaultConfig() ([]byte, error) {
	return fs.ReadFile(configFiles, "config.yaml")
}

// WriteDefaultConfig writes the embedded default config to path, refusing to overwrite
func WriteDefaultConfig(path string) error {
	data, err := DefaultConfig()
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing config file: %w", err)
	}
	return f.Close()
}

// DumpYAML writes settings as YAML with secrets redacted
func DumpYAML(w io.Writer, settings *Settings) error {
	redacted := *settings
	if redacted.Datastore.MySQL.Password != "" {
		redacted.Datastore.MySQL.Password = redactedValue
	}
	if redacted.Telemetry.DSN != "" {
		redacted.Telemetry.DSN = redactedValue
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return enc.Close()
}

const redactedValue = "[REDACTED]"

// GetLogger returns the config package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}

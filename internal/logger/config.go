package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"defaultlevel" mapstructure:"defaultlevel"` // default level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`         // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`           // console output configuration
	FileOutput   *FileOutput       `yaml:"file" mapstructure:"file"`                 // file output configuration
	ModuleLevels map[string]string `yaml:"modulelevels" mapstructure:"modulelevels"` // per-module level overrides
}

// ConsoleOutput represents console logging configuration.
// Console output is text without timestamps; the caller's terminal or
// supervisor adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	Level   string `yaml:"level" mapstructure:"level"`
}

const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/slrealizer.log"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

// applyConfigDefaults fills nil sections so a zero config still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Enabled: DefaultFileEnabled,
			Path:    DefaultLogPath,
			Level:   cfg.DefaultLevel,
		}
	}
}

// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Defaults shared with callers that build settings without viper
const (
	DefaultPixelScale     = 0.2  // arcsec per pixel
	DefaultGridSize       = 64   // pixels per side
	DefaultMaxMJD         = 65000.0
	DefaultFieldRadius    = 1.75 // degrees
	DefaultAstrometricStd = 1.0 / 3.0
	DefaultBatchSize      = 500

	// Twinkles field centre
	DefaultPointingRA  = 53.0091
	DefaultPointingDEC = -27.4389

	// Cerro Pachon
	DefaultSiteLatitude  = -30.2446
	DefaultSiteLongitude = -70.7494
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file.enabled", false)
	viper.SetDefault("logging.file.path", "logs/slrealizer.log")
	viper.SetDefault("logging.file.level", "debug")

	viper.SetDefault("realize.seed", 42)
	viper.SetDefault("realize.workers", 0)
	viper.SetDefault("realize.method", "pixel")
	viper.SetDefault("realize.grid.width", DefaultGridSize)
	viper.SetDefault("realize.grid.height", DefaultGridSize)
	viper.SetDefault("realize.grid.pixelscale", DefaultPixelScale)
	viper.SetDefault("realize.progressinterval", 10)

	viper.SetDefault("noise.flux.mean", 0.0)
	viper.SetDefault("noise.flux.std", 0.01)
	viper.SetDefault("noise.firstmoment.mean", 0.0)
	viper.SetDefault("noise.firstmoment.std", 0.01)
	viper.SetDefault("noise.secondmoment.mean", 0.0)
	viper.SetDefault("noise.secondmoment.std", 0.05)
	viper.SetDefault("noise.astrometricstd", DefaultAstrometricStd)
	viper.SetDefault("noise.fieldradius", DefaultFieldRadius)

	viper.SetDefault("survey.maxmjd", DefaultMaxMJD)
	viper.SetDefault("survey.excludefilters", []string{"y"})
	viper.SetDefault("survey.pointing.ra", DefaultPointingRA)
	viper.SetDefault("survey.pointing.dec", DefaultPointingDEC)
	viper.SetDefault("survey.nightfilter.enabled", false)
	viper.SetDefault("survey.nightfilter.latitude", DefaultSiteLatitude)
	viper.SetDefault("survey.nightfilter.longitude", DefaultSiteLongitude)

	viper.SetDefault("output.source", "source_table.csv")
	viper.SetDefault("output.object", "object_table.csv")
	viper.SetDefault("output.includestd", false)

	viper.SetDefault("datastore.enabled", false)
	viper.SetDefault("datastore.type", "sqlite")
	viper.SetDefault("datastore.batchsize", DefaultBatchSize)
	viper.SetDefault("datastore.sqlite.path", "slrealizer.db")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")
	viper.SetDefault("datastore.mysql.database", "slrealizer")
	viper.SetDefault("datastore.mysql.passwordfile", "")

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.dsnfile", "")

	viper.SetDefault("paint.count", 100)
	viper.SetDefault("paint.seed", 7)
	viper.SetDefault("paint.quadfraction", 0.2)
	viper.SetDefault("paint.firstid", 1000)

	viper.SetDefault("input.epoch", -1)
}

package realize

import "github.com/tphakala/slrealizer/internal/logger"

// GetLogger returns the realize module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("realize")
}

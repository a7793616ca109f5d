// Package buildinfo contains build-time metadata kept apart from user configuration
package buildinfo

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata
type BuildInfo interface {
	// GetVersion returns the build version string
	GetVersion() string
	// GetBuildDate returns the build date string
	GetBuildDate() string
}

// Context contains build-time metadata injected with -ldflags at startup
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// NewContext creates a build context
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

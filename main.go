package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/slrealizer/cmd"
	"github.com/tphakala/slrealizer/internal/buildinfo"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cmd.RootCommand(buildinfo.NewContext(version, buildDate))
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

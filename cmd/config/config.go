package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the config command, which prints the effective configuration
func Command(rt *pipeline.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.DumpYAML(cmd.OutOrStdout(), rt.Settings)
		},
	}

	cmd.AddCommand(initCommand())

	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "default configuration written to %s\n", path)
			return err
		},
	}
}

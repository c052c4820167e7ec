// Package cmd implements the weft developer CLI.
//
// The CLI is a thin layer over the framework: project scaffolding
// (init), the development watch/rebuild/reload loop (dev), and version
// information. Framework behavior lives under pkg/; commands only wire
// it to the filesystem and the terminal.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/go-weft/weft/pkg/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "weft - reactive component trees for Go",
	Long: `Weft is a reactive UI component framework for Go. Components own
their markup, updates coalesce per frame, and destruction is explicit
and cascades through the tree.

Use "weft <command> --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		logging.SetLevel("", level)
		return nil
	},
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
}

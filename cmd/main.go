// Command usersapi serves the read-only users API and manages its schema.
//
//	usersapi serve [-d]
//	usersapi migrate up|down [--steps n]
//	usersapi cache flush
package main

import (
	"fmt"
	"os"

	"UsersAPI/internal"
	"UsersAPI/internal/config"
	"UsersAPI/internal/logger"

	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:           "usersapi",
	Short:         "Users read API over PostgreSQL",
	SilenceUsage:  true,
	SilenceErrors: true,
	// serve is the default action
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command_failed", map[string]any{"error": err.Error()})
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the log file.
func setup() (*config.Config, error) {
	cfg := config.LoadConfig()
	root, err := internal.FindRepoRoot()
	if err != nil {
		root = "."
	}
	if err := logger.Init(root); err != nil {
		return nil, fmt.Errorf("log init failed: %w", err)
	}
	logger.SetDebug(debugFlag || cfg.Debug)
	return cfg, nil
}

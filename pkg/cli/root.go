// Package cli implements the databucket command-line interface. Commands are
// thin exercisers over the library packages; every invariant lives in
// pkg/session, pkg/registry, pkg/requestlog, pkg/search and pkg/descriptor.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajoealex/data-bucket-ui/pkg/client"
	"github.com/ajoealex/data-bucket-ui/pkg/cliconfig"
	"github.com/ajoealex/data-bucket-ui/pkg/logging"
	"github.com/ajoealex/data-bucket-ui/pkg/session"
)

var (
	// Persistent flags available to all subcommands
	jsonOutput bool
	logLevel   string
	logFormat  string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "databucket",
	Short: "databucket inspects webhook requests captured by a Data Bucket server",
	Long: `databucket connects to a Data Bucket capture server, manages named buckets
with configurable mock responses, and inspects the webhook requests each
bucket has captured.

Connect once with 'databucket connect'; the session is persisted until
'databucket disconnect'.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// newLogger builds the operational logger from the persistent flags.
func newLogger() *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Format: logging.ParseFormat(logFormat),
	})
}

// openSessionManager opens the persisted session store and wraps it in a
// session manager.
func openSessionManager() (*session.Manager, error) {
	store, err := cliconfig.OpenDefaultStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return session.NewManager(store, session.WithLogger(newLogger())), nil
}

// activeConnection restores the persisted session and returns a client for
// it. Commands that need a connection call this first.
func activeConnection() (client.Client, *session.Connection, error) {
	manager, err := openSessionManager()
	if err != nil {
		return nil, nil, err
	}
	conn, ok := manager.Restore()
	if !ok {
		return nil, nil, fmt.Errorf("not connected - run 'databucket connect' first")
	}
	c, err := manager.Client()
	if err != nil {
		return nil, nil, err
	}
	return c, conn, nil
}

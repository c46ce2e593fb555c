// Package cli implements the stacksd command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlibops/stacks/internal/config"
)

var (
	verbose    bool
	configPath string
)

// NewRootCmd constructs the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacksd",
		Short: "stacksd - library catalog hierarchy service",
		Long:  "stacksd serves the library organizational hierarchy (libraries, sections, shelves and operational units) over a JSON REST API backed by PostgreSQL.",
	}
	cmd.SilenceUsage = true
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// Execute runs the CLI entrypoint.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		exitCode := 1
		var cerr CommandError
		if errors.As(err, &cerr) {
			msg := strings.TrimSpace(cerr.Message)
			if msg == "" && cerr.Cause != nil {
				msg = cerr.Cause.Error()
			}
			if msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			if cerr.Cause != nil && msg != cerr.Cause.Error() && (verbose || msg == "") {
				fmt.Fprintf(os.Stderr, "details: %v\n", cerr.Cause)
			}
			if cerr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, formatSuggestion(cerr.Suggestion))
			}
			exitCode = cerr.ExitStatus()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, wrapError("load configuration", err, "Check the --config path and YAML syntax.", 2)
	}
	return cfg, nil
}

func logVerbose(cmd *cobra.Command, format string, args ...any) {
	if !verbose {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "[verbose] "+format+"\n", args...)
}

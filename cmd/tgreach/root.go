package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	envFile    string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tgreach",
	Short: "Rate-limited Telegram outreach engine",
	Long: `tgreach grows a Telegram community by discovering active commentators
in a source channel's discussion threads and contacting them one by one,
under strict daily, per-session, and hourly send budgets.

Features:
  - Commentator discovery with per-post dedup that survives restarts
  - Greet / respond / invite state machine persisted after every change
  - Flood-wait and abuse-signal handling with automatic cool-down
  - Human-like pacing: read pauses, typing time, decoy channel browsing
  - Secure credential storage using the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./tgreach.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file with credentials and tunables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`tgreach {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

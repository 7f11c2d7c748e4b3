package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tgreach/pkg/auth"
	"tgreach/pkg/config"
	"tgreach/pkg/engine"
	"tgreach/pkg/logger"
	"tgreach/pkg/state"
	"tgreach/pkg/telegram"
)

var (
	// Run command flags
	sourceRef  string
	targetRef  string
	statePath  string
	dailyQuota int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the outreach campaign loop",
	Long: `Run the campaign loop until interrupted: discover commentators from
the source channel's discussion threads, greet new users within the
configured budgets, invite users who respond, and browse decoy channels
in between.

While a scrape is in progress, press 't' to skip it and move straight to
the outreach session.

Credentials come from stored accounts ('tgreach auth login'), the
environment (API_ID, API_HASH, PHONE_NUMBER), or an --env-file. Campaign
state is persisted to the state file after every mutation, so the
process can be stopped and resumed at any point.`,
	Example: `  # Run with a config file
  tgreach run --config tgreach.yaml

  # Override channels from the command line
  tgreach run --source f1_news --target https://t.me/+AbCdEf

  # Run with credentials from a .env file
  tgreach run --env-file .env`,
	RunE: runCampaign,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&sourceRef, "source", "", "source channel whose discussion threads are scraped")
	runCmd.Flags().StringVar(&targetRef, "target", "", "destination channel referenced by invitations")
	runCmd.Flags().StringVar(&statePath, "state", "", "campaign state file (default: ./state.json)")
	runCmd.Flags().IntVar(&dailyQuota, "daily-quota", 0, "override the daily first-contact quota")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if sourceRef != "" {
		cfg.Channels.Source = sourceRef
	}
	if targetRef != "" {
		cfg.Channels.Target = targetRef
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}
	if dailyQuota > 0 {
		cfg.Quota.DailyQuota = dailyQuota
	}

	if err := fillCredentials(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := telegram.Dial(ctx, cfg.Platform, cfg.Proxy)
	if err != nil {
		return err
	}
	defer client.Close()

	store := state.NewStore(cfg.State.Path, cfg.Quota.AutoResetDaily, log)
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load campaign state: %w", err)
	}

	return engine.New(cfg, client, store, log).Run(ctx)
}

// loadConfig builds the effective configuration from defaults, the
// optional .env file, the YAML config, and environment overrides, with
// the --log-level flag on top. Validation is deferred until flag
// overrides and credential fallbacks have run.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// fillCredentials resolves missing platform credentials from the stored
// account backends.
func fillCredentials(cfg *config.Config) error {
	if cfg.Platform.APIID != 0 && cfg.Platform.APIHash != "" && cfg.Platform.Phone != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	var account *auth.Account
	if cfg.Platform.Phone != "" {
		account, err = manager.Retrieve(cfg.Platform.Phone)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return fmt.Errorf("no platform credentials: set API_ID/API_HASH/PHONE_NUMBER or run 'tgreach auth login': %w", err)
	}

	cfg.Platform.Phone = account.Phone
	cfg.Platform.APIID = account.APIID
	cfg.Platform.APIHash = account.APIHash
	if cfg.Platform.SessionName == "" && account.SessionName != "" {
		cfg.Platform.SessionName = account.SessionName
	}
	return nil
}

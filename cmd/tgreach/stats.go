package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tgreach/pkg/logger"
	"tgreach/pkg/state"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show campaign statistics",
	Long: `Show a summary of the campaign state file: discovered users, how far
each has progressed through the outreach funnel, and today's invite
counter against the daily quota.`,
	Example: `  # Stats for the default state file
  tgreach stats

  # Stats for a specific campaign
  tgreach stats --state ./campaigns/f1/state.json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statePath, "state", "", "campaign state file (default: ./state.json)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if statePath != "" {
		cfg.State.Path = statePath
	}

	if _, err := os.Stat(cfg.State.Path); os.IsNotExist(err) {
		return fmt.Errorf("no campaign state found at %s", cfg.State.Path)
	}

	cfg.Logging.Level = "error"
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	// Day rollover is left untouched so the file is reported as-is
	store := state.NewStore(cfg.State.Path, false, logger.GetLogger())
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load campaign state: %w", err)
	}

	snapshot := store.Snapshot()
	stats := store.Stats()
	responded := 0
	for _, u := range snapshot.Users {
		if u.Responded {
			responded++
		}
	}
	processedPosts := 0
	for _, ch := range snapshot.Channels {
		processedPosts += len(ch.Posts)
	}

	fmt.Printf("Campaign state: %s\n", cfg.State.Path)
	fmt.Printf("Date:           %s\n\n", snapshot.Date)
	fmt.Printf("Users discovered:  %d\n", stats.TotalUsers)
	fmt.Printf("  greeted:         %d\n", stats.Greeted)
	fmt.Printf("  responded:       %d\n", responded)
	fmt.Printf("  invited:         %d\n", stats.Invited)
	fmt.Printf("  not yet greeted: %d\n", stats.Remaining)
	fmt.Printf("\nInvites today:     %d / %d\n", stats.InvitesToday, cfg.Quota.DailyQuota)
	fmt.Printf("Processed posts:   %d\n", processedPosts)

	return nil
}

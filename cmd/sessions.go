package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/keelanv/parley/db"
	"github.com/keelanv/parley/internal/config"
	"github.com/keelanv/parley/internal/log"
	"github.com/keelanv/parley/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessions(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

// runSessions prints the persisted conversations, newest first. Kept
// independent of the TUI so it works in scripts and pipes.
func runSessions(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: cfg.SlogLevel()})

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	store, err := session.NewStore(pool, logger)
	if err != nil {
		return err
	}

	refs, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		fmt.Println("No conversations yet. Run parley to start one.")
		return nil
	}

	for i, ref := range refs {
		n, err := store.MessageCount(ctx, ref.ID)
		if err != nil {
			return err
		}
		title := ref.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Printf("%3d. %-60s  %3d messages  %s\n", i+1, title, n, ref.ID)
	}
	return nil
}

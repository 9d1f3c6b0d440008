package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/keelanv/parley/internal/app"
	"github.com/keelanv/parley/internal/config"
	"github.com/keelanv/parley/internal/log"
	"github.com/keelanv/parley/internal/session"
	"github.com/keelanv/parley/internal/tui"
)

// runChat initializes the application and starts the interactive TUI.
func runChat(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel()})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer a.Close()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	// Resume the previous conversation if one is recorded.
	if prev, err := session.LoadCurrentSessionID(homeDir); err != nil {
		logger.Warn("ignoring unreadable session state", "error", err)
	} else if prev != nil {
		if err := a.Conductor.SwitchTo(ctx, *prev); err != nil {
			logger.Warn("could not resume previous session", "session_id", *prev, "error", err)
		}
	}

	model, err := tui.New(ctx, tui.Options{
		Conductor: a.Conductor,
		Models:    a.LLM,
		Provider:  cfg.Provider,
		OnSessionChange: func(id uuid.UUID) {
			if err := session.SaveCurrentSessionID(homeDir, id); err != nil {
				logger.Warn("could not save session state", "error", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("create TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}

	// Record where we left off for next launch.
	if err := session.SaveCurrentSessionID(homeDir, a.Conductor.SessionID()); err != nil {
		logger.Warn("could not save session state", "error", err)
	}
	return nil
}

// Package cmd defines the parley command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - chat with your local models",
	Long: `Parley is a terminal chat client for local and hosted language models.

Conversations are persisted, so you can switch between past sessions,
attach files as context for your next message, and pick up where you
left off. Running parley with no arguments starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// newRootCmd builds the pushctl command tree. Subcommands are attached here
// rather than from init so tests can build isolated trees.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pushctl",
		Short: "Operator tooling for the push server",
		Long: `pushctl manages VAPID keys and issues dashboard tokens
for the push notification server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(newVAPIDCmd(), newTokenCmd())
	return root
}

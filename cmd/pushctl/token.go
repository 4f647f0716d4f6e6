package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	authProcessor "push-server/internal/auth/processor"
	"push-server/internal/observability"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a dashboard JWT signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := authProcessor.New(os.Getenv("JWT_SECRET"), observability.NewLogger())
			token, err := auth.IssueToken(cmd.Context(), subject, ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "operator identifier placed in the sub claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

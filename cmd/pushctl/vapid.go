package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"push-server/internal/push/keys"
)

func newVAPIDCmd() *cobra.Command {
	vapid := &cobra.Command{
		Use:   "vapid",
		Short: "Generate and inspect VAPID keys",
	}
	vapid.AddCommand(newGenerateCmd(), newPublicKeyCmd())
	return vapid
}

func newGenerateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new P-256 VAPID key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := keys.GenerateKeyPair()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				if err := os.WriteFile(out, pair.PEM, 0o600); err != nil {
					return fmt.Errorf("writing key file: %w", err)
				}
				fmt.Fprintf(w, "Private key written to %s\n", out)
			} else {
				fmt.Fprintf(w, "VAPID_PRIVATE_KEY=%s\n", pair.PrivateKey)
			}
			fmt.Fprintf(w, "VAPID_PUBLIC_KEY=%s\n", pair.PublicKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "write the private key as PEM to this file instead of printing it")
	return cmd
}

func newPublicKeyCmd() *cobra.Command {
	var keyFile string

	cmd := &cobra.Command{
		Use:   "public-key",
		Short: "Print the applicationServerKey for a PEM private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := keys.NewFileSigner(keyFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(signer.PublicKey()))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "path to the PEM encoded VAPID private key")
	_ = cmd.MarkFlagRequired("key-file")
	return cmd
}

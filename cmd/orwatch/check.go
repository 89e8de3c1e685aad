package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/orwatch/orwatch/internal/config"
	"github.com/orwatch/orwatch/internal/logging"
	"github.com/orwatch/orwatch/internal/openrouter"
)

// newCheckCommand is the manual test-connection action: one balance fetch,
// pass or fail, no cache and no alert ledger involved.
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the API credential with a single balance fetch.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := config.Load()
			logging.Init(logging.Config{Level: "warn", Format: cfg.Log.Format})

			apiKey := config.APIKey()
			if apiKey == "" {
				return fmt.Errorf("no API key configured: set %s or run `orwatch key set`", config.EnvAPIKey)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			client := openrouter.NewClient(cfg.BaseURL, apiKey)
			bal, err := client.Credits(ctx)
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Fprintf(os.Stdout, "OK: %.2f credits remaining (%.2f used of %.2f)\n",
				bal.Remaining(), bal.TotalUsage, bal.TotalCredits)
			return nil
		},
	}
}

func newKeyCommand() *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API credential.",
	}

	key.AddCommand(
		&cobra.Command{
			Use:   "set <api-key>",
			Short: "Store the API credential.",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				if err := config.SaveCredential(args[0]); err != nil {
					return err
				}
				fmt.Println("Credential saved.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "unset",
			Short: "Remove the stored API credential.",
			RunE: func(_ *cobra.Command, _ []string) error {
				if err := config.DeleteCredential(); err != nil {
					return err
				}
				fmt.Println("Credential removed.")
				return nil
			},
		},
	)
	return key
}

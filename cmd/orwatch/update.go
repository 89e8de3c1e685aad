package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orwatch/orwatch/internal/appupdate"
	"github.com/orwatch/orwatch/internal/version"
)

func newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Check whether a newer release is available.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{
				CurrentVersion: version.Version,
			})
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}

			switch {
			case result.CurrentVersion == "":
				fmt.Println("Development build; skipping update check.")
			case result.UpdateAvailable:
				fmt.Printf("Update available: %s -> %s\n", result.CurrentVersion, result.LatestVersion)
			default:
				fmt.Printf("Up to date (%s).\n", result.CurrentVersion)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orwatch/orwatch/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orwatch",
		Short:         "orwatch watches an OpenRouter account's balance and key usage and alerts on anomalies.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newRunCommand(),
		newCheckCommand(),
		newKeyCommand(),
		newUpdateCommand(),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.String())
		},
	}
}

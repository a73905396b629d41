package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metalagman/reqgate/internal/logging"
	"github.com/metalagman/reqgate/internal/settings"
)

var (
	debug   bool
	rootCmd = &cobra.Command{
		Use:   "reqgate",
		Short: "reqgate is an automated requirement quality gate",
	}
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init(debug)
		s, err := settings.Get()
		if err != nil {
			return err
		}
		if !debug {
			logging.SetLevel(s.LogLevel)
		}
		return nil
	}
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runsCmd())
	return rootCmd.Execute()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/metalagman/reqgate/internal/db"
	"github.com/metalagman/reqgate/internal/settings"
)

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List audited quality-gate runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Get()
			if err != nil {
				return err
			}
			storeDB, closeFn, err := openDB(s)
			if err != nil {
				return err
			}
			defer closeFn()

			store := db.NewStore(storeDB)
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []db.RunRecord{}
			}
			printJSON(runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum runs to list")
	return cmd
}

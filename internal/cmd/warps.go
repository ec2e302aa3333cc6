package cmd

import (
	"fmt"

	"github.com/essencekit/essence/internal/location"
	"github.com/essencekit/essence/internal/log"
	"github.com/spf13/cobra"
)

func warpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warps",
		Short: "Query the global warp partition",
	}

	cmd.AddCommand(warpsListCmd())

	return cmd
}

func warpsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List global warps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, closeLogger, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}
			defer closeLogger()

			store, errOpen := location.Open(cmd.Context(), conf.LocationsPath(), conf.Database.LogQueries)
			if errOpen != nil {
				return errOpen
			}
			defer log.Closer(store.Close)

			warps, errList := store.Warps(cmd.Context())
			if errList != nil {
				return errList
			}

			for name, loc := range warps {
				fmt.Printf("%s  %s (%.1f, %.1f, %.1f)\n", name, loc.WorldKey, loc.X, loc.Y, loc.Z)
			}

			return nil
		},
	}
}

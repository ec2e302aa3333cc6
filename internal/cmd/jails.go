package cmd

import (
	"fmt"

	"github.com/essencekit/essence/internal/log"
	"github.com/spf13/cobra"
)

func jailsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jails",
		Short: "Query jail waypoints",
	}

	cmd.AddCommand(jailsListCmd())

	return cmd
}

func jailsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jail waypoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, closeLogger, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}
			defer closeLogger()

			store, errOpen := openSuspensions(cmd, conf)
			if errOpen != nil {
				return errOpen
			}
			defer log.Closer(store.Close)

			waypoints, errList := store.ListAllJails(cmd.Context())
			if errList != nil {
				return errList
			}

			for name, loc := range waypoints {
				fmt.Printf("%s  %s (%.1f, %.1f, %.1f)\n", name, loc.WorldKey, loc.X, loc.Y, loc.Z)
			}

			return nil
		},
	}
}

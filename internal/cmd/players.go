package cmd

import (
	"fmt"

	"github.com/essencekit/essence/internal/log"
	"github.com/essencekit/essence/internal/player"
	"github.com/spf13/cobra"
)

func playersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "Query the player identity registry",
	}

	cmd.AddCommand(playersSearchCmd())
	cmd.AddCommand(playersLookupCmd())

	return cmd
}

func playersSearchCmd() *cobra.Command {
	var (
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search [prefix]",
		Short: "Page through known players by name prefix, most recently seen first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, closeLogger, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}
			defer closeLogger()

			store, errOpen := player.Open(cmd.Context(), conf.PlayersPath(), conf.Database.LogQueries)
			if errOpen != nil {
				return errOpen
			}
			defer log.Closer(store.Close)

			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}

			total, errCount := store.CountByPrefix(cmd.Context(), prefix)
			if errCount != nil {
				return errCount
			}

			identities, errList := store.ListByPrefix(cmd.Context(), prefix, offset, limit)
			if errList != nil {
				return errList
			}

			for _, identity := range identities {
				fmt.Printf("%s  %s  (seen %s)\n",
					identity.ID, identity.Name, identity.UpdatedAt.Format("2006-01-02 15:04:05"))
			}

			fmt.Printf("%d of %d match\n", len(identities), total)

			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 25, "max rows to show")

	return cmd
}

func playersLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Resolve a player by exact name, case-insensitive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, closeLogger, errConfig := loadConfig()
			if errConfig != nil {
				return errConfig
			}
			defer closeLogger()

			store, errOpen := player.Open(cmd.Context(), conf.PlayersPath(), conf.Database.LogQueries)
			if errOpen != nil {
				return errOpen
			}
			defer log.Closer(store.Close)

			identity, errLookup := store.LookupByName(cmd.Context(), args[0])
			if errLookup != nil {
				return errLookup
			}

			fmt.Printf("%s  %s  (seen %s)\n",
				identity.ID, identity.Name, identity.UpdatedAt.Format("2006-01-02 15:04:05"))

			return nil
		},
	}
}

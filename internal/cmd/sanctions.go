package cmd

import (
	"fmt"

	"github.com/essencekit/essence/internal/config"
	"github.com/essencekit/essence/internal/domain"
	"github.com/essencekit/essence/internal/log"
	"github.com/essencekit/essence/internal/suspension"
	"github.com/spf13/cobra"
)

func parseKind(arg string) (domain.SanctionKind, error) {
	kind := domain.SanctionKind(arg)
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %s (want ban, mute or jail)", domain.ErrInvalidKind, arg)
	}

	return kind, nil
}

func openSuspensions(cmd *cobra.Command, conf config.Config) (*suspension.Store, error) {
	return suspension.Open(cmd.Context(), conf.SuspensionsPath(), conf.Database.LogQueries)
}

func sanctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sanctions",
		Short: "Query active bans, mutes and jails",
	}

	cmd.AddCommand(sanctionsListCmd())
	cmd.AddCommand(sanctionsCountCmd())

	return cmd
}

func formatExpiry(record domain.SanctionRecord) string {
	if record.ExpiresAt == nil {
		return "permanent"
	}

	return "until " + record.ExpiresAt.Format("2006-01-02 15:04:05")
}

func sanctionsListCmd() *cobra.Command {
	var (
		offset int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list <ban|mute|jail>",
		Short: "List active sanctions of one kind, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, errKind := parseKind(args[0])
			if errKind != nil {
				return errKind
			}

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

			records, errList := store.ListActive(cmd.Context(), kind, offset, limit)
			if errList != nil {
				return errList
			}

			for _, record := range records {
				fmt.Printf("#%d %s by %s: %s (%s)\n",
					record.ID, record.Target, record.IssuerName, record.Reason, formatExpiry(record))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 25, "max rows to show")

	return cmd
}

func sanctionsCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <ban|mute|jail>",
		Short: "Count active sanctions of one kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, errKind := parseKind(args[0])
			if errKind != nil {
				return errKind
			}

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

			count, errCount := store.CountActive(cmd.Context(), kind)
			if errCount != nil {
				return errCount
			}

			fmt.Println(count)

			return nil
		},
	}
}

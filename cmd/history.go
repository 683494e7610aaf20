package cmd

import (
	"errors"
	"fmt"

	"Lyra/core/history"
	"Lyra/db"

	"github.com/spf13/cobra"
)

var (
	historyCount int
	historyTop   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently and most played songs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HistoryEnabled() {
			return withCode(ExitNoAction, errors.New("play history needs Redis (REDIS_HOST)"))
		}
		if err := db.ConnectRedis(cfg); err != nil {
			return withCode(ExitIOError, err)
		}
		defer db.CloseRedis()

		rec := history.NewRedis(db.RedisClient, cfg.HistorySize)
		ctx := cmd.Context()

		entries, err := rec.Recent(ctx, historyCount)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		fmt.Println("Recently played:")
		for _, e := range entries {
			fmt.Printf("  %s  %s (rank %d)\n", e.PlayedAt.Local().Format("2006-01-02 15:04"), e.Info, e.Rank)
		}

		counts, err := rec.Top(ctx, historyTop)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		if len(counts) > 0 {
			fmt.Println("\nMost played:")
		}
		for _, c := range counts {
			fmt.Printf("  %5d  %s\n", c.Plays, c.File)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "number of recent plays to show")
	historyCmd.Flags().IntVar(&historyTop, "top", 10, "number of most played files to show")
	rootCmd.AddCommand(historyCmd)
}

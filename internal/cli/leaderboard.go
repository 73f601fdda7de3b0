package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewLeaderboardCmd prints the current ranking straight from the configured store.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			b, err := openBackend(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()

			board, err := buildServices(cfg, log, b).Leaderboard.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tUSER\tCORRECT\tINCORRECT\tRATE\tSCORE")
			for _, row := range board.Rows {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.2f%%\t%d\n", row.Rank, row.Username, row.Correct, row.Incorrect, row.SuccessRate, row.Score)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "rows to show (defaults to leaderboard.limit)")
	return cmd
}

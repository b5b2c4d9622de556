package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"ctfdojo/internal/game"
	"ctfdojo/internal/state"

	"github.com/spf13/cobra"
)

func newStatsCommand(opts *options) *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show round history for a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
			if err != nil {
				return fmt.Errorf("open state db: %w", err)
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			sum, err := store.GetSummary(ctx, cfg.Catalog)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			heading(out, "Catalog "+cfg.Catalog)
			fmt.Fprintf(out, "Rounds: %d  Finished: %d  Wins: %d  Losses: %d\n", sum.Rounds, sum.Finished, sum.Wins, sum.Losses)
			fmt.Fprintf(out, "Flags found: %d  Hints used: %d  Wrong guesses: %d\n", sum.FlagsFound, sum.HintsUsed, sum.WrongGuesses)

			best, err := store.GetBestRound(ctx, cfg.Catalog)
			switch {
			case errors.Is(err, state.ErrNoRounds):
				fmt.Fprintln(out, mutedStyle.Render("No finished rounds yet."))
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Best: %d/%d with %s left\n", best.Completed, best.Total, game.FormatClock(best.TimeRemaining))
			}

			rounds, err := store.RecentRounds(ctx, recent)
			if err != nil {
				return err
			}
			if len(rounds) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(rounds))
			for _, r := range rounds {
				outcome := r.Outcome
				if !r.Finished() {
					outcome = "in progress"
				}
				rows = append(rows, []string{
					r.StartTS.Local().Format("2006-01-02 15:04"),
					r.CatalogID,
					outcome,
					fmt.Sprintf("%d/%d", r.Completed, r.Total),
					game.FormatClock(r.TimeRemaining),
					strconv.Itoa(r.HintsUsed),
				})
			}
			renderTable(out, cfg.ASCIIOnly, []string{"Started", "Catalog", "Outcome", "Flags", "Left", "Hints"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 10, "Number of recent rounds to list")
	return cmd
}

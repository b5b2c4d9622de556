package cli

import (
	"fmt"
	"strings"

	"ctfdojo/internal/app"
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/devtools"
	"ctfdojo/internal/game"

	"github.com/spf13/cobra"
)

func newDemoCommand(opts *options) *cobra.Command {
	var snapshotPath string
	demos := devtools.NewManager()
	cmd := &cobra.Command{
		Use:       "demo <scenario>",
		Short:     "Print the transcript of a scripted round",
		Long:      "Scenarios: " + strings.Join(demos.Names(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: demos.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			sc, err := demos.Resolve(args[0])
			if err != nil {
				return err
			}
			cats, err := app.LoadCatalogs(cmd.Context(), cfg.CatalogDir)
			if err != nil {
				return err
			}
			cat, err := catalog.Find(cats, cfg.Catalog)
			if err != nil {
				return err
			}

			engine := game.NewEngine(game.WithRand(game.NewRand(cfg.Seed)))
			s := demos.Transcript(engine, cat, sc, cfg.DurationSeconds)
			snap := s.Snapshot()

			out := cmd.OutOrStdout()
			for _, line := range snap.Output {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("[%s] catalog=%s phase=%s outcome=%s flags=%d/%d clock=%s",
				sc.Name, snap.CatalogID, snap.Phase, snap.Outcome, snap.Completed, snap.Total, snap.Clock)))

			if snapshotPath != "" {
				if err := demos.SaveSnapshot(snapshotPath, sc, snap); err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Also write the final state as JSON to this path")
	return cmd
}

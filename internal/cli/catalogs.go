package cli

import (
	"fmt"
	"strconv"

	"ctfdojo/internal/app"
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/game"

	"github.com/spf13/cobra"
)

func newCatalogsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "List, inspect and validate challenge catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCatalogs(cmd, opts)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the available catalogs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listCatalogs(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a catalog's briefing and challenge titles",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return showCatalog(cmd, opts, args[0])
			},
		},
		&cobra.Command{
			Use:   "validate <dir>",
			Short: "Validate every catalog file under a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateCatalogs(cmd, args[0])
			},
		},
	)
	return cmd
}

func listCatalogs(cmd *cobra.Command, opts *options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	cats, err := app.LoadCatalogs(cmd.Context(), cfg.CatalogDir)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{c.CatalogID, c.Name, strconv.Itoa(c.Total()), c.Path})
	}
	renderTable(cmd.OutOrStdout(), cfg.ASCIIOnly, []string{"ID", "Name", "Challenges", "Source"}, rows)
	return nil
}

// showCatalog prints what a player may see before starting. Flags and
// hints stay hidden.
func showCatalog(cmd *cobra.Command, opts *options, id string) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	cats, err := app.LoadCatalogs(cmd.Context(), cfg.CatalogDir)
	if err != nil {
		return err
	}
	cat, err := catalog.Find(cats, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	heading(out, cat.Name)
	fmt.Fprintln(out, game.IntroText(cat.Wording.Intro, cfg.DurationSeconds, cat.Total()))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(cat.Challenges))
	for _, ch := range cat.Challenges {
		rows = append(rows, []string{strconv.Itoa(ch.ID), ch.Title, strconv.Itoa(len(ch.Hints))})
	}
	renderTable(out, cfg.ASCIIOnly, []string{"#", "Title", "Hints"}, rows)
	return nil
}

func validateCatalogs(cmd *cobra.Command, dir string) error {
	cats, err := catalog.NewLoader().LoadCatalogs(cmd.Context(), dir)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return fmt.Errorf("no catalogs found under %s", dir)
	}
	out := cmd.OutOrStdout()
	for _, c := range cats {
		fmt.Fprintf(out, "ok  %s (%d challenges) %s\n", c.CatalogID, c.Total(), c.Path)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"epconvert"
)

func newOperatorsCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "operators <keyword>",
		Short: "Search the operator identity tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			conv := epconvert.FromConfig(cfg)
			records := conv.SearchOperators(args[0], limit)
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No operators matched.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Name", "Localized", "Code", "Class", "Nation", "Color"})
			for _, rec := range records {
				t.AppendRow(table.Row{rec.Name, rec.LocalizedName, rec.Code, rec.Class, rec.Nation, rec.Color})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	return cmd
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"epconvert"
)

func newScanCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "List the legacy bundles under a source root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cctx.ensureConfig(); err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid root: %w", err)
			}

			bundles, err := epconvert.Scan(root)
			if err != nil {
				return err
			}
			if len(bundles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No legacy bundles found.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Bundle", "Intro", "Overlay", "Logo", "Version", "Color"})
			for _, b := range bundles {
				t.AppendRow(table.Row{
					b.Name,
					mark(b.HasIntro),
					mark(b.HasOverlay),
					mark(b.HasLogo),
					b.Config.Version,
					b.Config.Color,
				})
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d bundles", len(bundles)), "", "", "", "", ""})
			t.Render()
			return nil
		},
	}
	return cmd
}

func mark(present bool) string {
	if present {
		return "yes"
	}
	return "-"
}

package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"epconvert/internal/history"
)

func newHistoryCommand(cctx *commandContext) *cobra.Command {
	var (
		limit  int
		bundle string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded conversion results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return fmt.Errorf("history is disabled: set history_db in the configuration")
			}

			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if bundle != "" {
				entries, err = store.ByBundle(cmd.Context(), bundle)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"When", "Bundle", "Result", "Message", "Files"})
			for _, e := range entries {
				result := "FAILED"
				if e.Success {
					result = "ok"
				}
				t.AppendRow(table.Row{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.BundleName,
					result,
					e.Message,
					strings.Join(e.Files, ", "),
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&bundle, "bundle", "", "Show only one bundle's conversions")
	return cmd
}

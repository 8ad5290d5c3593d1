package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"epconvert"
	"epconvert/internal/convert"
	"epconvert/internal/history"
	"epconvert/internal/identity"
	"epconvert/internal/reporter"
	"epconvert/internal/util"
)

func newConvertCommand(cctx *commandContext) *cobra.Command {
	var (
		input   string
		output  string
		mode    string
		autoOCR bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert legacy bundles under a source root",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("input root is required (-i/--input)")
			}
			if output == "" {
				return fmt.Errorf("output root is required (-o/--output)")
			}

			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			overlayMode, err := epconvert.ParseOverlayMode(mode)
			if err != nil {
				return err
			}

			srcRoot, err := filepath.Abs(input)
			if err != nil {
				return fmt.Errorf("invalid input path: %w", err)
			}
			dstRoot, err := filepath.Abs(output)
			if err != nil {
				return fmt.Errorf("invalid output path: %w", err)
			}
			if err := util.EnsureDirectory(dstRoot); err != nil {
				return fmt.Errorf("create output root: %w", err)
			}

			// One converter per destination at a time.
			lock := flock.New(filepath.Join(dstRoot, ".epconvert.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire output lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another conversion is already writing to %s", dstRoot)
			}
			defer func() { _ = lock.Unlock() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				cancel()
			}()

			var rep reporter.Reporter
			if cctx.jsonOut {
				rep = reporter.NewJSONReporter()
			} else {
				rep = reporter.NewTerminalReporter(cctx.verbose)
			}

			conv := epconvert.FromConfig(cfg)

			var confirm identity.ConfirmFunc
			if !yes && !cctx.jsonOut {
				bridge := convert.NewConfirmBridge(cfg.ConfirmTimeout())
				confirm = bridge.Hook()
				defer bridge.Close()
				go promptLoop(bridge, cmd)
			}

			outcome, err := conv.ConvertBatch(ctx, srcRoot, dstRoot, overlayMode, autoOCR, rep, confirm)
			if err != nil {
				return err
			}

			if cfg.HistoryDB != "" {
				if err := recordHistory(ctx, cfg.HistoryDB, outcome); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: history not recorded: %v\n", err)
				}
			}

			if outcome.Succeeded() < outcome.Attempted() {
				return fmt.Errorf("%d of %d bundles failed", outcome.Attempted()-outcome.Succeeded(), outcome.Attempted())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Source root holding legacy bundle folders")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output root for converted bundles")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(epconvert.ModeAuto), "Overlay mode: auto, arknights, or image")
	cmd.Flags().BoolVar(&autoOCR, "auto-ocr", false, "Run recognition even in arknights mode")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the top fuzzy candidate without prompting")

	return cmd
}

// promptLoop services disambiguation requests interactively: it lists the
// candidates, reads a number (or blank to skip), and replies.
func promptLoop(bridge *convert.ConfirmBridge, cmd *cobra.Command) {
	in := bufio.NewScanner(os.Stdin)
	out := cmd.OutOrStdout()

	for req := range bridge.Requests() {
		fmt.Fprintf(out, "\nRecognized %q - pick an operator:\n", req.RawText)
		for i, cand := range req.Candidates {
			fmt.Fprintf(out, "  %d) %s (%s) score %d\n", i+1, cand.Record.Name, cand.Record.Code, cand.Score)
		}
		fmt.Fprint(out, "Number, or empty to skip: ")

		if !in.Scan() {
			req.Reply(nil)
			continue
		}
		choice := strings.TrimSpace(in.Text())
		n, err := strconv.Atoi(choice)
		if choice == "" || err != nil || n < 1 || n > len(req.Candidates) {
			req.Reply(nil)
			continue
		}
		req.Reply(req.Candidates[n-1].Record)
	}
}

func recordHistory(ctx context.Context, dbPath string, outcome *epconvert.BatchOutcome) error {
	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.RecordBatch(ctx, outcome)
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/internal/revert"
	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/progress"
	"github.com/jvs-project/tidy/pkg/tidy"
)

var (
	revertLatest bool
	revertKeep   bool
)

var revertCmd = &cobra.Command{
	Use:   "revert [artifact]",
	Short: "Undo an organize run",
	Long: `Undo an organize run by replaying its change ledger backward.

Moved files go back to where they were and folders the run created are
removed when empty. Records that no longer apply are skipped. A file is
never moved back over one that has since taken its place: such a record is
reported as source_occupied and the file stays at its organized destination,
to be moved back by hand.

The ledger is deleted afterwards unless --keep-artifact is given.

The artifact can be:
- A ledger file name from "tidy logs list"
- A path to a ledger file
- Omitted, with --latest

Examples:
  tidy revert --latest
  tidy revert file_changes_20240101_120000.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		var artifact string
		switch {
		case revertLatest && len(args) == 1:
			fmtErr("give either an artifact or --latest, not both")
			os.Exit(1)
		case revertLatest:
			latest, err := ledger.Latest(client.LogDir())
			if err != nil {
				exitErr("revert", err)
			}
			artifact = latest.Path
		case len(args) == 1:
			artifact = client.ResolveArtifact(args[0])
		default:
			fmtErr("artifact or --latest required")
			os.Exit(1)
		}

		opts := tidy.RevertOptions{Artifact: artifact, KeepArtifact: revertKeep}
		var term *progress.Terminal
		if progressEnabled() {
			if art, err := ledger.Load(artifact); err == nil && len(art.Changes) > 0 {
				term = progress.NewTerminal(os.Stderr, "Reverting", len(art.Changes), true)
				opts.Progress = term.Callback()
			}
		}

		res, err := client.Revert(context.Background(), opts)
		if term != nil {
			term.Done("")
		}
		if err != nil {
			if errors.Is(err, errclass.ErrNotFound) && len(args) == 1 {
				fmtErr("revert: %v", err)
				fmt.Fprintln(os.Stderr, suggestArtifacts(args[0], client.LogDir()))
				os.Exit(1)
			}
			exitErr("revert", err)
		}

		if jsonOutput {
			outputJSON(res)
		} else {
			printRevertResult(res)
		}
		if res.Failed > 0 {
			os.Exit(1)
		}
	},
}

func printRevertResult(res *tidy.RevertResult) {
	fmt.Printf("Reverted %s\n", color.Path(res.Artifact))
	fmt.Printf("  Files restored:  %d\n", res.Reverted)
	fmt.Printf("  Folders removed: %d\n", res.Removed)
	if res.Skipped > 0 {
		fmt.Printf("  Skipped:         %d\n", res.Skipped)
	}
	if res.Failed > 0 {
		fmt.Println(color.Warningf("  Failed:          %d", res.Failed))
	}
	for _, o := range res.Outcomes {
		switch o.Status {
		case revert.StatusSkipped:
			fmt.Println(color.Dim(fmt.Sprintf("    skipped %s: %s", describeRecord(o), o.Reason)))
		case revert.StatusFailed:
			fmt.Printf("    %s %s: %s\n", color.Error("failed"), describeRecord(o), o.Error)
		}
	}
	switch {
	case res.ArtifactRemoved:
		fmt.Println(color.Dim("Change ledger removed."))
	case res.ArtifactError != "":
		fmt.Println(color.Warningf("Change ledger kept: %s", res.ArtifactError))
	}
}

func describeRecord(o revert.Outcome) string {
	if o.Source == "" {
		return o.Destination
	}
	return fmt.Sprintf("%s -> %s", o.Destination, o.Source)
}

func init() {
	revertCmd.Flags().BoolVar(&revertLatest, "latest", false, "revert the newest change ledger")
	revertCmd.Flags().BoolVar(&revertKeep, "keep-artifact", false, "keep the change ledger after reverting")
	rootCmd.AddCommand(revertCmd)
}

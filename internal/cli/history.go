package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/model"
)

var (
	historyLimit  int
	historyVerify bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the run history",
	Long: `Show the run history, newest first.

Every organize, revert and prune run appends a record to a hash-chained
history file in the state directory. Use --verify to check the chain.

Examples:
  tidy history              # Show all runs
  tidy history -n 10        # Show the last 10 runs
  tidy history --verify     # Check the hash chain`,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		if historyVerify {
			n, err := client.VerifyHistory()
			if jsonOutput {
				out := map[string]any{"records": n, "valid": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				outputJSON(out)
				if err != nil {
					os.Exit(1)
				}
				return
			}
			if err != nil {
				exitErr("verify history", err)
			}
			fmt.Println(color.Successf("History chain intact (%d records).", n))
			return
		}

		records, err := client.History()
		if err != nil {
			exitErr("read history", err)
		}
		if historyLimit > 0 && len(records) > historyLimit {
			records = records[len(records)-historyLimit:]
		}
		reversed := make([]model.HistoryRecord, 0, len(records))
		for i := len(records) - 1; i >= 0; i-- {
			reversed = append(reversed, records[i])
		}

		if jsonOutput {
			outputJSON(reversed)
			return
		}

		if len(reversed) == 0 {
			fmt.Println("No runs yet.")
			return
		}
		for _, rec := range reversed {
			fmt.Printf("%s  %-8s  %s  %s\n",
				color.Dim(rec.Timestamp.Local().Format("2006-01-02 15:04:05")),
				rec.EventType,
				color.Dim(shortID(rec.RunID)),
				describeRun(rec),
			)
		}
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func describeRun(rec model.HistoryRecord) string {
	d := rec.Details
	switch rec.EventType {
	case model.EventTypeOrganize:
		return fmt.Sprintf("%s  moved %v, folders %v, failed %v",
			color.Path(rec.BasePath), d["files_moved"], d["folders_created"], d["failures"])
	case model.EventTypeRevert:
		return fmt.Sprintf("%s  restored %v, removed %v, skipped %v, failed %v",
			color.Path(rec.BasePath), d["reverted"], d["folders_removed"], d["skipped"], d["failed"])
	case model.EventTypePrune:
		return fmt.Sprintf("deleted %v ledgers", d["deleted"])
	}
	return ""
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "limit number of entries (0 = all)")
	historyCmd.Flags().BoolVar(&historyVerify, "verify", false, "verify the history hash chain")
	rootCmd.AddCommand(historyCmd)
}

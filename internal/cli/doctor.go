package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/color"
)

var (
	doctorRepair bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check state directory health",
	Long: `Check state directory health.

Checks that the state and log directories are usable, that every change
ledger decodes and still matches the filesystem, that the run history
chain is intact and that no run holds the lock.
Use --repair to remove temp files left by interrupted writes.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		if doctorRepair {
			results, err := client.Repair([]string{"clean_tmp"})
			if err != nil {
				exitErr("repair", err)
			}
			if !jsonOutput {
				for _, r := range results {
					fmt.Printf("Repair %s: %s\n", r.Action, r.Message)
				}
			}
		}

		result := client.Doctor()
		if jsonOutput {
			outputJSON(result)
			if !result.Healthy {
				os.Exit(1)
			}
			return
		}

		if len(result.Findings) == 0 {
			fmt.Println(color.Success("State directory is healthy."))
			return
		}

		fmt.Printf("Findings (%d):\n", len(result.Findings))
		for _, f := range result.Findings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Category, f.Description)
		}

		if !result.Healthy {
			os.Exit(1)
		}
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorRepair, "repair", false, "run safe repairs before checking")
	rootCmd.AddCommand(doctorCmd)
}

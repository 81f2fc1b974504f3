package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/internal/lock"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect the run lock",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a run holds the state directory lock",
	Run: func(cmd *cobra.Command, args []string) {
		mgr := lock.NewManager(resolveStateDir())
		state, holder, err := mgr.Status()
		if err != nil {
			exitErr("check lock status", err)
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"path":   mgr.Path(),
				"state":  state,
				"holder": holder,
			})
			return
		}

		fmt.Printf("Lock state: %s\n", state)
		if state == lock.StateHeld && holder != nil {
			fmt.Printf("  Run:      %s (%s)\n", holder.RunID, holder.Purpose)
			fmt.Printf("  PID:      %d\n", holder.PID)
			fmt.Printf("  Acquired: %s\n", holder.AcquiredAt.Local().Format(time.RFC3339))
		}
	},
}

func init() {
	lockCmd.AddCommand(lockStatusCmd)
	rootCmd.AddCommand(lockCmd)
}

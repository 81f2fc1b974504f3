package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/model"
)

var (
	logsPruneDryRun bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and prune change ledgers",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List change ledgers, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		infos, err := client.Artifacts()
		if err != nil {
			exitErr("list logs", err)
		}

		if jsonOutput {
			if infos == nil {
				infos = []ledger.ArtifactInfo{}
			}
			outputJSON(infos)
			return
		}

		if len(infos) == 0 {
			fmt.Printf("No change ledgers in %s.\n", color.Path(client.LogDir()))
			return
		}
		fmt.Println(renderArtifactTable(infos, time.Now()))
	},
}

// renderArtifactTable renders infos newest first.
func renderArtifactTable(infos []ledger.ArtifactInfo, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Artifact", "Created", "Age", "Size"})
	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]
		tw.AppendRow(table.Row{
			info.Name,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			humanize.RelTime(info.CreatedAt, now, "ago", "from now"),
			humanize.Bytes(uint64(info.Size)),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

var logsShowCmd = &cobra.Command{
	Use:   "show <artifact>",
	Short: "Show the records of a change ledger",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		art, err := client.LoadArtifact(args[0])
		if err != nil {
			fmtErr("show log: %v", err)
			fmt.Fprintln(os.Stderr, suggestArtifacts(args[0], client.LogDir()))
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(art)
			return
		}

		fmt.Printf("%s  %d moves, %d folders\n",
			color.Header(filepath.Base(client.ResolveArtifact(args[0]))),
			art.CountByKind(model.ChangeMove), art.CountByKind(model.ChangeFolderCreation))
		if len(art.Changes) == 0 {
			fmt.Println(color.Dim("(no changes)"))
			return
		}
		fmt.Println(renderChangeTable(art.Changes))
	},
}

func renderChangeTable(changes []model.ChangeRecord) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Type", "Source", "Destination"})
	for i, rec := range changes {
		tw.AppendRow(table.Row{i + 1, string(rec.Kind), rec.Source, rec.Destination})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete change ledgers outside the retention policy",
	Long: `Delete change ledgers outside the retention policy.

The newest retention_policy.keep_min_artifacts ledgers and any younger
than retention_policy.keep_min_age are kept. A pruned run can no longer
be reverted.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		res, err := client.Prune(context.Background(), logsPruneDryRun)
		if err != nil {
			exitErr("prune logs", err)
		}

		if jsonOutput {
			outputJSON(res)
			if res.Run != nil && len(res.Run.Failures) > 0 {
				os.Exit(1)
			}
			return
		}

		plan := res.Plan
		fmt.Printf("Prune plan: %s\n", plan.PlanID)
		fmt.Printf("  Protected: %d ledgers\n", len(plan.Protected))
		fmt.Printf("  To delete: %d ledgers (%s)\n", len(plan.ToDelete), humanize.Bytes(uint64(plan.ReclaimBytes)))
		if res.DryRun {
			for _, info := range plan.ToDelete {
				fmt.Printf("    %s\n", info.Name)
			}
			fmt.Println(color.Dim("Dry run; nothing deleted."))
			return
		}

		fmt.Println(color.Successf("Deleted %d ledgers.", len(res.Run.Deleted)))
		for _, f := range res.Run.Failures {
			fmtErr("delete %s: %s", f.Path, f.Error)
		}
		if len(res.Run.Failures) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	logsPruneCmd.Flags().BoolVar(&logsPruneDryRun, "dry-run", false, "show the plan without deleting")
	logsCmd.AddCommand(logsListCmd)
	logsCmd.AddCommand(logsShowCmd)
	logsCmd.AddCommand(logsPruneCmd)
	rootCmd.AddCommand(logsCmd)
}

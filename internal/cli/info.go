package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/config"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show state directory and category information",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireClient()
		defer client.Close()

		infos, _ := client.Artifacts()
		records, _ := client.History()

		cats := client.Categories()
		labels := make([]string, len(cats))
		for i, c := range cats {
			labels[i] = string(c)
		}

		cfgPath := configFile
		if cfgPath == "" {
			cfgPath = config.Path(client.StateDir())
		}

		info := map[string]any{
			"state_dir":      client.StateDir(),
			"log_dir":        client.LogDir(),
			"config":         cfgPath,
			"default_path":   client.Config().ResolveDefaultPath(),
			"categories":     labels,
			"artifact_count": len(infos),
			"history_count":  len(records),
		}

		if jsonOutput {
			outputJSON(info)
			return
		}

		fmt.Printf("State directory: %s\n", client.StateDir())
		fmt.Printf("  Config:        %s\n", cfgPath)
		fmt.Printf("  Log directory: %s\n", client.LogDir())
		fmt.Printf("  Default path:  %s\n", client.Config().ResolveDefaultPath())
		fmt.Printf("  Categories:    %s\n", strings.Join(labels, ", "))
		fmt.Printf("  Ledgers:       %d\n", len(infos))
		fmt.Printf("  Runs:          %d\n", len(records))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

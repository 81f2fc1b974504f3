package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/color"
)

var (
	jsonOutput  bool
	noColor     bool
	stateDir    string
	configFile  string
	logLevel    string
	metricsFile string

	rootCmd = &cobra.Command{
		Use:   "tidy",
		Short: "tidy - sort a directory into category folders, and undo it",
		Long: `tidy sorts the files of a directory into category folders by extension
(Audio, Video, Documents, Images, Archives, Installers, Others).

Every run writes a change ledger to the log directory. Any run can be
undone later with "tidy revert", which replays its ledger backward.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			color.Init(noColor)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory (default $TIDY_HOME or ~/.tidy)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <state-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// outputJSON prints v as JSON if --json flag is set, otherwise does nothing.
func outputJSON(v any) error {
	if !jsonOutput {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSONOrError prints v as JSON if --json flag is set, or prints error.
func outputJSONOrError(v any, err error) error {
	if err != nil {
		return err
	}
	return outputJSON(v)
}

// printf writes human output. It is silent under --json.
func printf(format string, args ...any) {
	if jsonOutput {
		return
	}
	fmt.Printf(format, args...)
}

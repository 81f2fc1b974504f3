package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/config"
	"github.com/jvs-project/tidy/pkg/fsutil"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the state directory and a default config",
	Long: `Create the state directory with a default config.yaml and an empty log
directory. Running it again keeps an existing config.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := resolveStateDir()
		path := configTarget()

		created := false
		if !fsutil.Exists(path) {
			if err := config.SaveFile(path, config.Default()); err != nil {
				exitErr("write config", err)
			}
			created = true
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			exitErr("load config", err)
		}
		logDir := cfg.ResolveLogDir(dir)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			exitErr("create log dir", err)
		}

		if jsonOutput {
			outputJSON(map[string]any{
				"state_dir":      dir,
				"config":         path,
				"log_dir":        logDir,
				"config_created": created,
			})
			return
		}
		if created {
			fmt.Printf("Wrote default config to %s\n", color.Success(path))
		} else {
			fmt.Printf("Config already exists at %s\n", color.Path(path))
		}
		fmt.Printf("  Log directory: %s\n", color.Path(logDir))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

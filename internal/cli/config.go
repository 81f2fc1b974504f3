package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jvs-project/tidy/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config <command>",
	Short: "Manage tidy configuration",
	Long: `Manage tidy configuration stored in <state-dir>/config.yaml.

Configuration options:
  default_path                         - Directory organized when none is given
  log_dir                              - Where change ledgers are written
  metrics_file                         - Prometheus textfile written after each run
  retention_policy.keep_min_artifacts  - Ledgers always kept by "tidy logs prune"
  retention_policy.keep_min_age        - Ledgers younger than this are kept (e.g. 720h)
  logging.level                        - debug, info, warn, error
  logging.format                       - text, json
  categories.<label>                   - Comma-separated extensions for a category

Available commands:
  show              - Show current configuration
  set <key> <value> - Set a configuration value
  get <key>         - Get a configuration value`,
	DisableFlagsInUseLine: true,
}

// configTarget returns the file config commands read and write.
func configTarget() string {
	if configFile != "" {
		return configFile
	}
	return config.Path(resolveStateDir())
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadFile(configTarget())
		if err != nil {
			exitErr("load config", err)
		}

		if jsonOutput {
			outputJSON(cfg)
			return
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitErr("encode config", err)
		}
		fmt.Println("# tidy configuration")
		fmt.Printf("# Location: %s\n\n", configTarget())
		fmt.Print(string(data))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Examples:
  tidy config set default_path ~/Downloads
  tidy config set retention_policy.keep_min_artifacts 50
  tidy config set categories.Ebooks epub,mobi
  tidy config set categories.Ebooks ""     # Remove the category`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path := configTarget()
		cfg, err := config.LoadFile(path)
		if err != nil {
			exitErr("load config", err)
		}

		key := args[0]
		value := args[1]

		if err := cfg.Set(key, value); err != nil {
			fmtErr("set config: %v", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			fmtErr("set config: %v", err)
			os.Exit(1)
		}

		if err := config.SaveFile(path, cfg); err != nil {
			exitErr("save config", err)
		}

		printf("Set %s = %s\n", key, value)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value.

Available keys:
  ` + strings.Join(config.Keys(), "\n  "),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadFile(configTarget())
		if err != nil {
			exitErr("load config", err)
		}

		key := args[0]
		value, err := cfg.Get(key)
		if err != nil {
			fmtErr("get config: %v", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]string{"key": key, "value": value})
			return
		}
		if value == "" {
			fmt.Printf("%s (not set)\n", key)
		} else {
			fmt.Println(value)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

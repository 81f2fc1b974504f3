package cli

import (
	"fmt"
	"os"

	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/config"
	"github.com/jvs-project/tidy/pkg/logging"
	"github.com/jvs-project/tidy/pkg/progress"
	"github.com/jvs-project/tidy/pkg/tidy"
)

// resolveStateDir returns --state-dir or the default state directory.
func resolveStateDir() string {
	if stateDir != "" {
		return stateDir
	}
	return config.DefaultStateDir()
}

// loadConfig reads --config, or the config in the state directory.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load(resolveStateDir())
}

// requireClient opens a client from the global flags, or exits with error.
// The caller must Close it.
func requireClient() *tidy.Client {
	cfg, err := loadConfig()
	if err != nil {
		fmtErr("load config: %v", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		fmtErr("logging: %v", err)
		os.Exit(1)
	}
	logging.SetGlobal(log)

	client, err := tidy.Open(tidy.Options{
		StateDir:    resolveStateDir(),
		Config:      cfg,
		Logger:      log,
		MetricsFile: metricsFile,
	})
	if err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
	return client
}

// progressEnabled reports whether progress output should be drawn.
func progressEnabled() bool {
	return !jsonOutput && progress.IsTerminal(os.Stderr)
}

func fmtErr(format string, args ...any) {
	prefix := "tidy: "
	if color.Enabled() {
		prefix = color.Error("tidy:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}

// exitErr reports err, plus a hint for its error class, and exits.
func exitErr(what string, err error) {
	fmtErr("%s: %v", what, err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
	os.Exit(1)
}

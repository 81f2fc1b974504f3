package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/model"
)

func executeCommand(root *cobra.Command, args ...string) (stdout string, err error) {
	// Capture os.Stdout since CLI uses fmt.Printf directly
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	root.SetArgs(args)
	err = root.Execute()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

func createTestRootCmd() *cobra.Command {
	jsonOutput = false
	noColor = true
	stateDir = ""
	configFile = ""
	logLevel = ""
	metricsFile = ""
	organizePath = ""
	organizeRecursive = false
	organizeDepth = -1
	revertLatest = false
	revertKeep = false
	historyLimit = 0
	historyVerify = false
	logsPruneDryRun = false
	doctorRepair = false
	color.Disable()

	cmd := &cobra.Command{
		Use:           "tidy",
		Short:         "tidy - sort a directory into category folders, and undo it",
		Long:          `tidy sorts the files of a directory into category folders by extension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", true, "disable colored output")
	cmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level")
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "metrics textfile")

	cmd.AddCommand(initCmd)
	cmd.AddCommand(organizeCmd)
	cmd.AddCommand(revertCmd)
	cmd.AddCommand(logsCmd)
	cmd.AddCommand(historyCmd)
	cmd.AddCommand(doctorCmd)
	cmd.AddCommand(configCmd)
	cmd.AddCommand(lockCmd)
	cmd.AddCommand(infoCmd)

	return cmd
}

// setupDirs returns a state directory and a directory with files to organize.
func setupDirs(t *testing.T) (string, string) {
	t.Helper()
	state := t.TempDir()
	base := t.TempDir()
	for name, content := range map[string]string{
		"song.mp3":   "audio",
		"report.pdf": "doc",
		"photo.JPG":  "image",
		"notes":      "no extension",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(base, name), []byte(content), 0644))
	}
	return state, base
}

func TestRootCommand_Help(t *testing.T) {
	stdout, err := executeCommand(createTestRootCmd(), "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "category folders")
}

func TestRootCommand_JSONFlag(t *testing.T) {
	_, err := executeCommand(createTestRootCmd(), "--json", "--help")
	require.NoError(t, err)
	assert.True(t, jsonOutput)
}

func TestInitCommand_WritesConfig(t *testing.T) {
	state := t.TempDir()
	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote default config")
	assert.FileExists(t, filepath.Join(state, "config.yaml"))
	assert.DirExists(t, filepath.Join(state, "logs"))

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "already exists")
}

func TestOrganizeAndRevertCommands(t *testing.T) {
	state, base := setupDirs(t)

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Files moved:     4")
	assert.Contains(t, stdout, "Folders created: 7")
	assert.FileExists(t, filepath.Join(base, "Images", "photo.JPG"))
	assert.FileExists(t, filepath.Join(base, "Others", "notes"))

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "--json", "logs", "list")
	require.NoError(t, err)
	var infos []ledger.ArtifactInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	require.Len(t, infos, 1)

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "--json", "logs", "show", infos[0].Name)
	require.NoError(t, err)
	var art model.LedgerArtifact
	require.NoError(t, json.Unmarshal([]byte(stdout), &art))
	assert.Equal(t, 7, art.CountByKind(model.ChangeFolderCreation))
	assert.Equal(t, 4, art.CountByKind(model.ChangeMove))

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "revert", "--latest")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Files restored:  4")
	assert.Contains(t, stdout, "Folders removed: 7")
	assert.FileExists(t, filepath.Join(base, "photo.JPG"))
	assert.NoDirExists(t, filepath.Join(base, "Images"))
	assert.NoFileExists(t, infos[0].Path)

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "revert")
	assert.Contains(t, lines[1], "organize")

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "history", "--verify")
	require.NoError(t, err)
	assert.Contains(t, stdout, "intact (2 records)")
}

func TestOrganizeCommand_JSON(t *testing.T) {
	state, base := setupDirs(t)

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "--json", "organize", "--path", base)
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, base, res["base_path"])
	assert.EqualValues(t, 4, res["files_moved"])
	assert.EqualValues(t, 11, res["changes"])
	assert.NotEmpty(t, res["run_id"])
	assert.FileExists(t, res["artifact"].(string))
}

func TestOrganizeCommand_Recursive(t *testing.T) {
	state, base := setupDirs(t)
	sub := filepath.Join(base, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "clip.mp4"), []byte("v"), 0644))

	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base, "-r")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(sub, "Video", "clip.mp4"))
}

func TestOrganizeCommand_DepthNeedsRecursive(t *testing.T) {
	state, base := setupDirs(t)
	sub := filepath.Join(base, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "clip.mp4"), []byte("v"), 0644))

	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base, "-d", "2")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(sub, "clip.mp4"), "depth alone does not recurse")
	assert.NoDirExists(t, filepath.Join(sub, "Video"))
	assert.FileExists(t, filepath.Join(base, "Audio", "song.mp3"))
}

func TestRevertCommand_HelpExplainsOccupiedSource(t *testing.T) {
	stdout, err := executeCommand(createTestRootCmd(), "revert", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "source_occupied")
	assert.Contains(t, stdout, "stays at its organized destination")
}

func TestWalkDepth(t *testing.T) {
	assert.Equal(t, 0, walkDepth(false, -1))
	assert.Equal(t, 0, walkDepth(false, 2))
	assert.Equal(t, -1, walkDepth(true, -1))
	assert.Equal(t, 2, walkDepth(true, 2))
	assert.Equal(t, 0, walkDepth(true, 0))
}

func TestCompleteArtifacts(t *testing.T) {
	state, base := setupDirs(t)
	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base)
	require.NoError(t, err)
	infos, err := ledger.List(filepath.Join(state, "logs"))
	require.NoError(t, err)
	require.Len(t, infos, 1)

	names, directive := completeArtifacts(revertCmd, nil, "file_changes_")
	assert.Equal(t, []string{infos[0].Name}, names)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	names, _ = completeArtifacts(revertCmd, nil, "other")
	assert.Empty(t, names)
	names, _ = completeArtifacts(revertCmd, []string{infos[0].Name}, "")
	assert.Empty(t, names)
}

func TestRevertCommand_KeepArtifact(t *testing.T) {
	state, base := setupDirs(t)

	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base)
	require.NoError(t, err)
	infos, err := ledger.List(filepath.Join(state, "logs"))
	require.NoError(t, err)
	require.Len(t, infos, 1)

	_, err = executeCommand(createTestRootCmd(), "--state-dir", state, "--json", "revert", infos[0].Name, "--keep-artifact")
	require.NoError(t, err)
	assert.FileExists(t, infos[0].Path)
	assert.FileExists(t, filepath.Join(base, "song.mp3"))
}

func TestLogsPruneCommand_DryRun(t *testing.T) {
	state, base := setupDirs(t)

	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "config", "set", "retention_policy.keep_min_artifacts", "0")
	require.NoError(t, err)
	_, err = executeCommand(createTestRootCmd(), "--state-dir", state, "config", "set", "retention_policy.keep_min_age", "0s")
	require.NoError(t, err)
	_, err = executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base)
	require.NoError(t, err)

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "logs", "prune", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "To delete: 1 ledgers")
	assert.Contains(t, stdout, "Dry run")

	infos, err := ledger.List(filepath.Join(state, "logs"))
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "logs", "prune")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Deleted 1 ledgers.")
}

func TestConfigCommands(t *testing.T) {
	state := t.TempDir()

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "config", "set", "categories.Ebooks", "epub,mobi")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Set categories.Ebooks")

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "config", "get", "categories.Ebooks")
	require.NoError(t, err)
	assert.Equal(t, "epub,mobi\n", stdout)

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ebooks")
	assert.Contains(t, stdout, "retention_policy")

	stdout, err = executeCommand(createTestRootCmd(), "--state-dir", state, "--json", "info")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Contains(t, info["categories"], "Ebooks")
}

func TestLockStatusCommand(t *testing.T) {
	state := t.TempDir()

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "lock", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Lock state: free")
}

func TestDoctorCommand_Healthy(t *testing.T) {
	state, base := setupDirs(t)

	_, err := executeCommand(createTestRootCmd(), "--state-dir", state, "organize", base)
	require.NoError(t, err)

	stdout, err := executeCommand(createTestRootCmd(), "--state-dir", state, "doctor", "--repair")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Repair clean_tmp")
}

func TestRenderArtifactTable(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	infos := []ledger.ArtifactInfo{
		{Name: "file_changes_20240101_120000.json", CreatedAt: now.Add(-24 * time.Hour), Size: 2048},
		{Name: "file_changes_20240102_110000.json", CreatedAt: now.Add(-time.Hour), Size: 512},
	}

	out := renderArtifactTable(infos, now)
	assert.Contains(t, out, "Artifact")
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "2.0 kB")
	assert.Less(t, strings.Index(out, "20240102_110000"), strings.Index(out, "20240101_120000"))
}

func TestRenderChangeTable(t *testing.T) {
	out := renderChangeTable([]model.ChangeRecord{
		{Kind: model.ChangeFolderCreation, Destination: "/d/Audio"},
		{Kind: model.ChangeMove, Source: "/d/a.mp3", Destination: "/d/Audio/a.mp3"},
	})
	assert.Contains(t, out, "folder_creation")
	assert.Contains(t, out, "/d/Audio/a.mp3")
}

func TestDescribeRun(t *testing.T) {
	rec := model.HistoryRecord{
		EventType: model.EventTypePrune,
		Details:   map[string]any{"deleted": 3},
	}
	assert.Equal(t, "deleted 3 ledgers", describeRun(rec))
	assert.Equal(t, "abcdef12", shortID("abcdef1234567890"))
	assert.Equal(t, "abc", shortID("abc"))
}

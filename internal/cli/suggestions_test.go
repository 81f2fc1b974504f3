package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/tidy/pkg/color"
	"github.com/jvs-project/tidy/pkg/errclass"
)

func writeArtifacts(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(`{"changes":[]}`), 0644))
	}
}

func TestSuggestArtifacts(t *testing.T) {
	color.Disable()

	t.Run("No artifacts", func(t *testing.T) {
		result := suggestArtifacts("file_changes_20240101_000000.json", filepath.Join(t.TempDir(), "logs"))
		assert.Contains(t, result, "tidy organize")
	})

	t.Run("Prefix match", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifacts(t, dir,
			"file_changes_20240101_100000.json",
			"file_changes_20240101_110000.json",
			"file_changes_20240202_090000.json",
		)
		result := suggestArtifacts("file_changes_20240101", dir)
		assert.Contains(t, result, "Did you mean one of")
		assert.Contains(t, result, "file_changes_20240101_110000.json")
		assert.NotContains(t, result, "20240202")
	})

	t.Run("Single match", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifacts(t, dir, "file_changes_20240101_100000.json", "file_changes_20240202_090000.json")
		result := suggestArtifacts("20240202", dir)
		assert.Contains(t, result, "Did you mean: file_changes_20240202_090000.json?")
	})

	t.Run("No match", func(t *testing.T) {
		dir := t.TempDir()
		writeArtifacts(t, dir, "file_changes_20240101_100000.json")
		result := suggestArtifacts("nothing", dir)
		assert.Contains(t, result, "tidy logs list")
	})
}

func TestHintFor(t *testing.T) {
	color.Disable()

	assert.Contains(t, hintFor(errclass.ErrLockConflict.WithMessage("held")), "tidy doctor")
	assert.Contains(t, hintFor(errclass.ErrHistoryChainBroken), "tidy history --verify")
	assert.NotEmpty(t, hintFor(errclass.ErrArtifactCorrupt))
	assert.Empty(t, hintFor(errclass.ErrNotFound))
}

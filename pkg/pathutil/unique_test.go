package pathutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jvs-project/tidy/pkg/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		path, stem, ext string
	}{
		{"song.mp3", "song", ".mp3"},
		{"/a/b/archive.tar.gz", "/a/b/archive.tar", ".gz"},
		{"/a/b/.bashrc", "/a/b/.bashrc", ""},
		{"/a/b/..double", "/a/b/..double", ""},
		{"/a/.b/.c.txt", "/a/.b/.c", ".txt"},
		{"/a.d/README", "/a.d/README", ""},
		{"trailing.", "trailing", "."},
		{"", "", ""},
	}
	for _, tt := range tests {
		stem, ext := pathutil.SplitExt(tt.path)
		assert.Equal(t, tt.stem, stem, tt.path)
		assert.Equal(t, tt.ext, ext, tt.path)
	}
}

func TestUniquePath_FreePathUnchanged(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "noext", ".hidden", "x.tar.gz"} {
		p := filepath.Join(dir, name)
		assert.Equal(t, p, pathutil.UniquePath(p))
	}
}

func TestUniquePath_SmallestFreeSuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "song.mp3")

	got := pathutil.UniquePath(filepath.Join(dir, "song.mp3"))
	assert.Equal(t, filepath.Join(dir, "song(1).mp3"), got)

	touch(t, dir, "song(1).mp3")
	touch(t, dir, "song(3).mp3")
	got = pathutil.UniquePath(filepath.Join(dir, "song.mp3"))
	assert.Equal(t, filepath.Join(dir, "song(2).mp3"), got, "gaps are reused")
}

func TestUniquePath_NoExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Makefile")
	touch(t, dir, ".env")

	assert.Equal(t, filepath.Join(dir, "Makefile(1)"), pathutil.UniquePath(filepath.Join(dir, "Makefile")))
	assert.Equal(t, filepath.Join(dir, ".env(1)"), pathutil.UniquePath(filepath.Join(dir, ".env")))
}

func TestUniquePath_DirectoryCountsAsEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "report.pdf"), 0755))

	assert.Equal(t, filepath.Join(dir, "report(1).pdf"), pathutil.UniquePath(filepath.Join(dir, "report.pdf")))
}

func TestUniquePath_ManyCollisions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.txt")
	for i := 1; i <= 25; i++ {
		p := pathutil.UniquePath(filepath.Join(dir, "a.txt"))
		assert.NotEqual(t, filepath.Join(dir, "a.txt"), p)
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}
	assert.FileExists(t, filepath.Join(dir, "a(25).txt"))
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
}

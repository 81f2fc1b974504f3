package audit_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/tidy/internal/audit"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/model"
)

func organizeEntry(runID string) audit.Entry {
	return audit.Entry{
		EventType: model.EventTypeOrganize,
		RunID:     runID,
		BasePath:  "/home/u/Downloads",
		Artifact:  "/home/u/.tidy/logs/file_changes_20260314_092653.json",
		Details:   map[string]any{"moved": 2, "failed": 0},
	}
}

func TestFileAppender_AppendCreatesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", audit.FileName)
	appender := audit.NewFileAppender(path)

	rec, err := appender.Append(organizeEntry("run-1"))
	require.NoError(t, err)
	assert.Empty(t, rec.PrevHash)
	assert.Len(t, string(rec.RecordHash), 64)

	records, err := audit.Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.EventTypeOrganize, records[0].EventType)
	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, rec.RecordHash, records[0].RecordHash)
}

func TestFileAppender_HashChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), audit.FileName)
	appender := audit.NewFileAppender(path)

	first, err := appender.Append(organizeEntry("run-1"))
	require.NoError(t, err)
	second, err := appender.Append(audit.Entry{EventType: model.EventTypeRevert, RunID: "run-2"})
	require.NoError(t, err)

	assert.Equal(t, first.RecordHash, second.PrevHash)

	last, err := appender.LastRecordHash()
	require.NoError(t, err)
	assert.Equal(t, second.RecordHash, last)

	n, err := audit.VerifyChain(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFileAppender_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), audit.FileName)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate appenders contend on the file lock, not the mutex.
			_, err := audit.NewFileAppender(path).Append(organizeEntry("run"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := audit.VerifyChain(path)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestFileAppender_LastRecordHashMissingFile(t *testing.T) {
	appender := audit.NewFileAppender(filepath.Join(t.TempDir(), audit.FileName))
	hash, err := appender.LastRecordHash()
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestRead_MissingFile(t *testing.T) {
	records, err := audit.Read(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), audit.FileName)
	appender := audit.NewFileAppender(path)
	_, err := appender.Append(organizeEntry("run-1"))
	require.NoError(t, err)
	_, err = appender.Append(organizeEntry("run-2"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"moved":2`, `"moved":3`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0644))

	n, err := audit.VerifyChain(path)
	assert.ErrorIs(t, err, errclass.ErrHistoryChainBroken)
	assert.Equal(t, 0, n)
}

func TestVerifyChain_DetectsRemovedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), audit.FileName)
	appender := audit.NewFileAppender(path)
	for _, id := range []string{"a", "b", "c"} {
		_, err := appender.Append(organizeEntry(id))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.SplitAfter(string(data), "\n")
	require.NoError(t, os.WriteFile(path, []byte(lines[0]+lines[2]), 0644))

	n, err := audit.VerifyChain(path)
	assert.ErrorIs(t, err, errclass.ErrHistoryChainBroken)
	assert.Equal(t, 1, n)
}

func TestRead_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), audit.FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0644))

	_, err := audit.Read(path)
	assert.ErrorIs(t, err, errclass.ErrHistoryChainBroken)
}

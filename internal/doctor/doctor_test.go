package doctor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvs-project/tidy/internal/audit"
	"github.com/jvs-project/tidy/internal/doctor"
	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/internal/lock"
	"github.com/jvs-project/tidy/pkg/model"
)

func setup(t *testing.T) (stateDir, logDir string) {
	stateDir = t.TempDir()
	logDir = filepath.Join(stateDir, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0755))
	return stateDir, logDir
}

func findings(res *doctor.Result, category string) []doctor.Finding {
	var out []doctor.Finding
	for _, f := range res.Findings {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

func TestDoctor_Check_Healthy(t *testing.T) {
	stateDir, logDir := setup(t)
	base := t.TempDir()
	dst := filepath.Join(base, "Audio", "a.mp3")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))
	require.NoError(t, os.WriteFile(dst, nil, 0644))

	l := ledger.New(base, logDir)
	l.RecordMove(filepath.Join(base, "a.mp3"), dst)
	_, err := l.Persist()
	require.NoError(t, err)

	res := doctor.NewDoctor(stateDir, logDir).Check()
	assert.True(t, res.Healthy)
	assert.Equal(t, 1, res.Artifacts)
	assert.Empty(t, res.Findings)
}

func TestDoctor_Check_MissingStateDir(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "fresh")
	res := doctor.NewDoctor(stateDir, filepath.Join(stateDir, "logs")).Check()
	assert.True(t, res.Healthy)
	assert.Zero(t, res.Artifacts)
}

func TestDoctor_Check_StateDirIsFile(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(stateDir, nil, 0644))

	res := doctor.NewDoctor(stateDir, filepath.Join(t.TempDir(), "logs")).Check()
	assert.False(t, res.Healthy)
	require.NotEmpty(t, findings(res, "state"))
	assert.Equal(t, doctor.SeverityCritical, findings(res, "state")[0].Severity)
}

func TestDoctor_Check_CorruptArtifact(t *testing.T) {
	stateDir, logDir := setup(t)
	bad := filepath.Join(logDir, "file_changes_20260314_092653.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"base_path": "/x"`), 0644))

	res := doctor.NewDoctor(stateDir, logDir).Check()
	assert.False(t, res.Healthy)
	f := findings(res, "artifact")
	require.Len(t, f, 1)
	assert.Equal(t, bad, f[0].Path)
	assert.Contains(t, f[0].Description, "E_ARTIFACT_CORRUPT")
}

func TestDoctor_Check_StaleArtifact(t *testing.T) {
	stateDir, logDir := setup(t)
	base := t.TempDir()
	l := ledger.New(base, logDir)
	l.RecordMove(filepath.Join(base, "a.mp3"), filepath.Join(base, "Audio", "a.mp3"))
	_, err := l.Persist()
	require.NoError(t, err)

	res := doctor.NewDoctor(stateDir, logDir).Check()
	assert.True(t, res.Healthy)
	f := findings(res, "artifact")
	require.Len(t, f, 1)
	assert.Equal(t, doctor.SeverityWarning, f[0].Severity)
	assert.Contains(t, f[0].Description, "stale")
}

func TestDoctor_Check_BrokenHistory(t *testing.T) {
	stateDir, logDir := setup(t)
	path := filepath.Join(stateDir, audit.FileName)
	appender := audit.NewFileAppender(path)
	_, err := appender.Append(audit.Entry{EventType: model.EventTypeOrganize, RunID: "r1", BasePath: "/a"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), `"/a"`, `"/b"`, 1)), 0644))

	res := doctor.NewDoctor(stateDir, logDir).Check()
	assert.False(t, res.Healthy)
	f := findings(res, "history")
	require.Len(t, f, 1)
	assert.Contains(t, f[0].Description, "E_HISTORY_CHAIN_BROKEN")
}

func TestDoctor_Check_HeldLock(t *testing.T) {
	stateDir, logDir := setup(t)
	l, err := lock.NewManager(stateDir).Acquire("run-9", "organize")
	require.NoError(t, err)
	defer l.Release()

	res := doctor.NewDoctor(stateDir, logDir).Check()
	assert.True(t, res.Healthy)
	f := findings(res, "lock")
	require.Len(t, f, 1)
	assert.Contains(t, f[0].Description, "run-9")
}

func TestDoctor_OrphanTmpAndRepair(t *testing.T) {
	stateDir, logDir := setup(t)
	tmp := filepath.Join(logDir, ".tidy-tmp-123")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0644))

	d := doctor.NewDoctor(stateDir, logDir)
	res := d.Check()
	assert.True(t, res.Healthy)
	require.Len(t, findings(res, "tmp"), 1)

	assert.Equal(t, "clean_tmp", d.ListRepairActions()[0].ID)
	results, err := d.Repair([]string{"clean_tmp"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Cleaned)
	assert.NoFileExists(t, tmp)

	_, err = d.Repair([]string{"rewind_time"})
	assert.Error(t, err)
}

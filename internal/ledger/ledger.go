// Package ledger records the filesystem mutations performed during one run.
//
// A ChangeLedger is created at the start of a run and handed to every
// component that mutates the tree. Records are appended strictly after the
// corresponding mutation succeeded, so the persisted order is the order in
// which operations were performed. A process killed between a mutation and its
// append loses that record; this window is accepted rather than closed with a
// write-ahead log.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jvs-project/tidy/pkg/fsutil"
	"github.com/jvs-project/tidy/pkg/model"
	"github.com/jvs-project/tidy/pkg/pathutil"
)

// ChangeLedger is the ordered, append-only record of one run's mutations.
// It is owned by the run that created it and is not safe for concurrent use.
type ChangeLedger struct {
	basePath  string
	timestamp string
	createdAt time.Time
	logDir    string
	changes   []model.ChangeRecord

	// artifactPath is fixed by the first Persist call.
	artifactPath string
}

// New creates a ledger for a run targeting basePath whose artifact will be
// written to logDir.
func New(basePath, logDir string) *ChangeLedger {
	return NewAt(basePath, logDir, time.Now())
}

// NewAt creates a ledger with an explicit creation time.
func NewAt(basePath, logDir string, createdAt time.Time) *ChangeLedger {
	return &ChangeLedger{
		basePath:  basePath,
		timestamp: createdAt.Format(model.TimestampLayout),
		createdAt: createdAt,
		logDir:    logDir,
	}
}

// RecordMove appends a move record. Call only after the rename succeeded.
func (l *ChangeLedger) RecordMove(source, destination string) {
	l.changes = append(l.changes, model.ChangeRecord{
		Kind:        model.ChangeMove,
		Source:      source,
		Destination: destination,
	})
}

// RecordFolderCreation appends a folder-creation record. Call only after the
// directory was actually created, never for one that already existed.
func (l *ChangeLedger) RecordFolderCreation(path string) {
	l.changes = append(l.changes, model.ChangeRecord{
		Kind:        model.ChangeFolderCreation,
		Destination: path,
	})
}

// Changes returns a copy of the records in insertion order.
func (l *ChangeLedger) Changes() []model.ChangeRecord {
	out := make([]model.ChangeRecord, len(l.changes))
	copy(out, l.changes)
	return out
}

// Len returns the number of records.
func (l *ChangeLedger) Len() int {
	return len(l.changes)
}

// BasePath returns the root directory the run targeted.
func (l *ChangeLedger) BasePath() string {
	return l.basePath
}

// Timestamp returns the fixed-width creation timestamp.
func (l *ChangeLedger) Timestamp() string {
	return l.timestamp
}

// CreatedAt returns the ledger creation time.
func (l *ChangeLedger) CreatedAt() time.Time {
	return l.createdAt
}

// Artifact returns the serializable form of the ledger.
func (l *ChangeLedger) Artifact() *model.LedgerArtifact {
	return &model.LedgerArtifact{
		BasePath:  l.basePath,
		Timestamp: l.timestamp,
		Changes:   l.Changes(),
	}
}

// Persist writes the ledger to its artifact file and returns the path.
// The containing directory is created if absent. The first call picks the
// artifact name; if another run already wrote an artifact with the same
// timestamp the name is disambiguated. Later calls overwrite the same file.
func (l *ChangeLedger) Persist() (string, error) {
	if err := os.MkdirAll(l.logDir, 0755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	if l.artifactPath == "" {
		l.artifactPath = pathutil.UniquePath(filepath.Join(l.logDir, ArtifactName(l.timestamp)))
	}

	data, err := json.MarshalIndent(l.Artifact(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ledger: %w", err)
	}
	data = append(data, '\n')

	if err := fsutil.AtomicWrite(l.artifactPath, data, 0644); err != nil {
		return "", fmt.Errorf("write ledger: %w", err)
	}
	return l.artifactPath, nil
}

// ArtifactName returns the artifact file name for a timestamp.
func ArtifactName(timestamp string) string {
	return model.ArtifactPrefix + timestamp + model.ArtifactExt
}

// Package audit keeps the hash-chained history of organize, revert and
// prune runs.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/jsonutil"
	"github.com/jvs-project/tidy/pkg/model"
)

// FileName is the history file name inside the state directory.
const FileName = "history.jsonl"

const maxLineSize = 1 << 20

// Entry carries the caller-supplied fields of a history record.
type Entry struct {
	EventType model.HistoryEventType
	RunID     string
	BasePath  string
	Artifact  string
	Details   map[string]any
}

// FileAppender appends history records to a JSONL file with hash chain.
type FileAppender struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path, now: time.Now}
}

// Path returns the history file location.
func (a *FileAppender) Path() string {
	return a.path
}

// Append adds a new record to the history, chained to the last one.
func (a *FileAppender) Append(e Entry) (*model.HistoryRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	// Separate lock file so readers never contend with the data file.
	fl := flock.New(a.path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer fl.Unlock()

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	prevHash, err := lastRecordHash(file)
	if err != nil {
		return nil, fmt.Errorf("get last record hash: %w", err)
	}

	record := &model.HistoryRecord{
		Timestamp: a.now().UTC(),
		RunID:     e.RunID,
		EventType: e.EventType,
		BasePath:  e.BasePath,
		Artifact:  e.Artifact,
		Details:   e.Details,
		PrevHash:  prevHash,
	}
	hash, err := ComputeRecordHash(record)
	if err != nil {
		return nil, fmt.Errorf("compute record hash: %w", err)
	}
	record.RecordHash = hash

	line, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal history record: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write history record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync history: %w", err)
	}
	return record, nil
}

// LastRecordHash returns the hash of the last record in the history.
func (a *FileAppender) LastRecordHash() (model.HashValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open history: %w", err)
	}
	defer file.Close()
	return lastRecordHash(file)
}

func lastRecordHash(file *os.File) (model.HashValue, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek to start: %w", err)
	}

	var last model.HashValue
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var record model.HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // malformed lines are reported by VerifyChain
		}
		last = record.RecordHash
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan history: %w", err)
	}
	return last, nil
}

// ComputeRecordHash hashes the canonical JSON of a record with its
// RecordHash field cleared.
func ComputeRecordHash(record *model.HistoryRecord) (model.HashValue, error) {
	hashRecord := *record
	hashRecord.RecordHash = ""
	sum, err := jsonutil.SHA256Hex(&hashRecord)
	if err != nil {
		return "", err
	}
	return model.HashValue(sum), nil
}

// Read returns all history records, oldest first. A missing file yields
// no records.
func Read(path string) ([]model.HistoryRecord, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	var records []model.HistoryRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record model.HistoryRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return records, errclass.ErrHistoryChainBroken.WithMessagef("line %d: malformed record: %v", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("scan history: %w", err)
	}
	return records, nil
}

// VerifyChain checks every record's hash and its link to the previous
// record. It returns the number of records verified.
func VerifyChain(path string) (int, error) {
	records, err := Read(path)
	if err != nil {
		return len(records), err
	}

	var prev model.HashValue
	for i := range records {
		rec := &records[i]
		if rec.PrevHash != prev {
			return i, errclass.ErrHistoryChainBroken.WithMessagef(
				"record %d (%s): prev_hash %q does not match %q", i+1, rec.RunID, rec.PrevHash, prev)
		}
		want, err := ComputeRecordHash(rec)
		if err != nil {
			return i, fmt.Errorf("compute record hash: %w", err)
		}
		if rec.RecordHash != want {
			return i, errclass.ErrHistoryChainBroken.WithMessagef(
				"record %d (%s): record_hash mismatch", i+1, rec.RunID)
		}
		prev = rec.RecordHash
	}
	return len(records), nil
}

package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/model"
)

// rawArtifact distinguishes missing fields from empty ones while decoding.
type rawArtifact struct {
	BasePath  *string            `json:"base_path"`
	Timestamp *string            `json:"timestamp"`
	Changes   *[]json.RawMessage `json:"changes"`
}

type rawRecord struct {
	Kind        *model.ChangeKind `json:"Type"`
	Source      *string           `json:"source"`
	Destination *string           `json:"destination"`
}

// Load reads and validates a ledger artifact. Any decode or shape problem is
// reported as errclass.ErrArtifactCorrupt; a missing file keeps its
// os.ErrNotExist identity.
func Load(path string) (*model.LedgerArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return Decode(data)
}

// Decode parses artifact bytes with the same validation as Load.
func Decode(data []byte) (*model.LedgerArtifact, error) {
	var raw rawArtifact
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, errclass.ErrArtifactCorrupt.WithMessagef("decode ledger: %v", err)
	}
	switch {
	case raw.BasePath == nil:
		return nil, errclass.ErrArtifactCorrupt.WithMessage("missing base_path")
	case raw.Timestamp == nil:
		return nil, errclass.ErrArtifactCorrupt.WithMessage("missing timestamp")
	case raw.Changes == nil:
		return nil, errclass.ErrArtifactCorrupt.WithMessage("missing changes")
	}

	artifact := &model.LedgerArtifact{
		BasePath:  *raw.BasePath,
		Timestamp: *raw.Timestamp,
		Changes:   make([]model.ChangeRecord, 0, len(*raw.Changes)),
	}
	for i, msg := range *raw.Changes {
		rec, err := decodeRecord(msg)
		if err != nil {
			return nil, errclass.ErrArtifactCorrupt.WithMessagef("change %d: %v", i, err)
		}
		artifact.Changes = append(artifact.Changes, rec)
	}
	return artifact, nil
}

func decodeRecord(msg json.RawMessage) (model.ChangeRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(msg, &raw); err != nil {
		return model.ChangeRecord{}, err
	}
	if raw.Kind == nil {
		return model.ChangeRecord{}, fmt.Errorf("missing Type")
	}
	if !raw.Kind.Valid() {
		return model.ChangeRecord{}, fmt.Errorf("unknown Type %q", *raw.Kind)
	}
	if raw.Destination == nil || *raw.Destination == "" {
		return model.ChangeRecord{}, fmt.Errorf("missing destination")
	}
	rec := model.ChangeRecord{Kind: *raw.Kind, Destination: *raw.Destination}
	if raw.Source != nil {
		rec.Source = *raw.Source
	}
	if rec.Kind == model.ChangeMove && rec.Source == "" {
		return model.ChangeRecord{}, fmt.Errorf("move without source")
	}
	return rec, nil
}

// ArtifactInfo describes a ledger artifact found in a log directory.
type ArtifactInfo struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// List returns the artifacts in logDir, oldest first. A missing directory
// yields an empty list.
func List(logDir string) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var infos []ArtifactInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ts, ok := ParseArtifactName(name)
		if !ok {
			continue
		}
		created, err := time.ParseInLocation(model.TimestampLayout, ts, time.Local)
		if err != nil {
			continue
		}
		info := ArtifactInfo{
			Path:      filepath.Join(logDir, name),
			Name:      name,
			Timestamp: ts,
			CreatedAt: created,
		}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Timestamp != infos[j].Timestamp {
			return infos[i].Timestamp < infos[j].Timestamp
		}
		return artifactSeq(infos[i].Name) < artifactSeq(infos[j].Name)
	})
	return infos, nil
}

// Latest returns the newest artifact in logDir.
func Latest(logDir string) (*ArtifactInfo, error) {
	infos, err := List(logDir)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, errclass.ErrNotFound.WithMessagef("no ledger artifacts in %s", logDir)
	}
	latest := infos[len(infos)-1]
	return &latest, nil
}

// ParseArtifactName extracts the timestamp from an artifact file name,
// including names disambiguated with a "(k)" suffix.
func ParseArtifactName(name string) (string, bool) {
	if !strings.HasPrefix(name, model.ArtifactPrefix) || !strings.HasSuffix(name, model.ArtifactExt) {
		return "", false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, model.ArtifactPrefix), model.ArtifactExt)
	if i := strings.IndexByte(ts, '('); i >= 0 {
		ts = ts[:i]
	}
	if len(ts) != len(model.TimestampLayout) {
		return "", false
	}
	return ts, true
}

// artifactSeq returns the disambiguation counter of an artifact name, 0 when
// the name carries none.
func artifactSeq(name string) int {
	open := strings.LastIndexByte(name, '(')
	end := strings.LastIndexByte(name, ')')
	if open < 0 || end < open {
		return 0
	}
	n, err := strconv.Atoi(name[open+1 : end])
	if err != nil {
		return 0
	}
	return n
}

// Package revert undoes an organize run by replaying its change ledger
// artifact backward.
package revert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/fsutil"
	"github.com/jvs-project/tidy/pkg/logging"
	"github.com/jvs-project/tidy/pkg/metrics"
	"github.com/jvs-project/tidy/pkg/model"
	"github.com/jvs-project/tidy/pkg/progress"
)

// Status is the outcome of reverting one record.
type Status string

const (
	StatusReverted Status = "reverted" // move undone
	StatusRemoved  Status = "removed"  // created folder removed
	StatusSkipped  Status = "skipped"  // nothing to do
	StatusFailed   Status = "failed"
)

// Skip and failure reasons.
const (
	ReasonNotFound       = "not_found"
	ReasonNotDir         = "not_dir"
	ReasonNotEmpty       = "not_empty"
	ReasonSourceOccupied = "source_occupied"
)

// Outcome reports what happened to one change record.
type Outcome struct {
	Index       int              `json:"index"`
	Kind        model.ChangeKind `json:"type"`
	Source      string           `json:"source,omitempty"`
	Destination string           `json:"destination"`
	Status      Status           `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	Code        string           `json:"code,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Result summarizes a revert pass.
type Result struct {
	Artifact        string    `json:"artifact"`
	BasePath        string    `json:"base_path"`
	Outcomes        []Outcome `json:"outcomes"`
	Reverted        int       `json:"reverted"`
	Removed         int       `json:"folders_removed"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	ArtifactRemoved bool      `json:"artifact_removed"`
	ArtifactError   string    `json:"artifact_error,omitempty"`
}

// Options configures a Reverter. The zero value is usable.
type Options struct {
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// OnRecord is called with each record's index before it is processed.
	OnRecord func(index int, rec model.ChangeRecord)
	Progress progress.Callback
	// KeepArtifact leaves the artifact in place after the pass.
	KeepArtifact bool
}

// Reverter replays ledger artifacts backward.
type Reverter struct {
	opts Options
	log  *logging.Logger
}

// New creates a reverter.
func New(opts Options) *Reverter {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Reverter{opts: opts, log: log}
}

// Revert loads the artifact at path and undoes its records in reverse
// order. A corrupt or unreadable artifact is returned as an error before
// anything is touched. Per-record problems are reported in the result and
// never stop the pass. The artifact is deleted once the pass is complete.
func (r *Reverter) Revert(path string) (*Result, error) {
	art, err := ledger.Load(path)
	if err != nil {
		return nil, errclass.Classify(err)
	}

	res := &Result{Artifact: path, BasePath: art.BasePath}
	p := progress.New("revert", len(art.Changes), r.opts.Progress)
	for i := len(art.Changes) - 1; i >= 0; i-- {
		rec := art.Changes[i]
		if r.opts.OnRecord != nil {
			r.opts.OnRecord(i, rec)
		}
		var out Outcome
		switch rec.Kind {
		case model.ChangeFolderCreation:
			out = r.revertFolderCreation(rec.Destination)
		case model.ChangeMove:
			out = r.revertMove(rec.Source, rec.Destination)
		}
		out.Index = i
		out.Kind = rec.Kind
		out.Source = rec.Source
		out.Destination = rec.Destination
		r.tally(res, out)
		p.Increment(filepath.Base(rec.Destination))
	}
	p.Done("")

	if r.opts.KeepArtifact {
		return res, nil
	}
	if err := os.Remove(path); err != nil {
		res.ArtifactError = errclass.Classify(err).Error()
		r.log.Warn("could not delete ledger artifact", map[string]any{"path": path, "error": res.ArtifactError})
	} else {
		res.ArtifactRemoved = true
	}
	return res, nil
}

func (r *Reverter) revertFolderCreation(dir string) Outcome {
	info, err := os.Lstat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return skipped(ReasonNotFound, errclass.ErrNotFound)
	}
	if err != nil {
		return failed("", err)
	}
	if !info.IsDir() {
		return skipped(ReasonNotDir, errclass.ErrAlreadyExists)
	}
	empty, err := fsutil.IsEmptyDir(dir)
	if err != nil {
		return failed("", err)
	}
	if !empty {
		return skipped(ReasonNotEmpty, errclass.ErrNonEmptyDirectory)
	}
	if err := os.Remove(dir); err != nil {
		return failed("", err)
	}
	return Outcome{Status: StatusRemoved}
}

func (r *Reverter) revertMove(src, dst string) Outcome {
	if !fsutil.Exists(dst) {
		return skipped(ReasonNotFound, errclass.ErrNotFound)
	}
	if fsutil.Exists(src) {
		return failed(ReasonSourceOccupied,
			errclass.ErrAlreadyExists.WithMessagef("%s is occupied, leaving %s in place", src, dst))
	}
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		return failed("", fmt.Errorf("recreate parent: %w", err))
	}
	if err := os.Rename(dst, src); err != nil {
		return failed("", err)
	}
	return Outcome{Status: StatusReverted}
}

func skipped(reason string, class *errclass.TidyError) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason, Code: class.Code}
}

func failed(reason string, err error) Outcome {
	err = errclass.Classify(err)
	return Outcome{Status: StatusFailed, Reason: reason, Code: errclass.Code(err), Error: err.Error()}
}

func (r *Reverter) tally(res *Result, out Outcome) {
	res.Outcomes = append(res.Outcomes, out)

	fields := map[string]any{"type": string(out.Kind), "dst": out.Destination}
	if out.Source != "" {
		fields["src"] = out.Source
	}
	switch out.Status {
	case StatusReverted:
		res.Reverted++
		r.opts.Metrics.RecordRevert(metrics.OutcomeReverted)
		r.log.Info("reverted move", fields)
	case StatusRemoved:
		res.Removed++
		r.opts.Metrics.RecordRevert(metrics.OutcomeRemoved)
		r.log.Info("removed folder", fields)
	case StatusSkipped:
		res.Skipped++
		r.opts.Metrics.RecordRevert(metrics.OutcomeSkipped)
		fields["reason"] = out.Reason
		if out.Reason == ReasonNotFound && out.Kind == model.ChangeMove {
			r.log.Warn("file not found, nothing to revert", fields)
		} else {
			r.log.Debug("skipped record", fields)
		}
	case StatusFailed:
		res.Failed++
		r.opts.Metrics.RecordRevert(metrics.OutcomeFailed)
		fields["error"] = out.Error
		r.log.Error("revert failed", fields)
	}
}

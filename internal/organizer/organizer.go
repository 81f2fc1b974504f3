// Package organizer moves the files of a directory tree into category
// subdirectories and records every mutation in a change ledger.
package organizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jvs-project/tidy/internal/classify"
	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/internal/walker"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/fsutil"
	"github.com/jvs-project/tidy/pkg/logging"
	"github.com/jvs-project/tidy/pkg/metrics"
	"github.com/jvs-project/tidy/pkg/pathutil"
)

// RenameFunc performs a single move. os.Rename by default.
type RenameFunc func(oldpath, newpath string) error

// Options configures an Organizer. The zero value is usable.
type Options struct {
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// OnMove is called after each successful, logged move.
	OnMove func(source, destination string)
	Rename RenameFunc
	// Exclude lists directories a recursive run never enters, such as the
	// state and log directories.
	Exclude []string
}

// Failure is a per-item error that did not stop the run.
type Failure struct {
	Op     string `json:"op"` // mkdir, move, list
	Path   string `json:"path"`
	Target string `json:"target,omitempty"`
	Code   string `json:"code"`
	Err    error  `json:"-"`
	Detail string `json:"error"`
}

// Result summarizes an organize run.
type Result struct {
	DirsVisited    int       `json:"dirs_visited"`
	FoldersCreated int       `json:"folders_created"`
	FilesMoved     int       `json:"files_moved"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Organizer performs organize runs against one ledger.
type Organizer struct {
	ledger     *ledger.ChangeLedger
	classifier *classify.Classifier
	log        *logging.Logger
	metrics    *metrics.Registry
	onMove     func(source, destination string)
	rename     RenameFunc
	exclude    []string
}

// New creates an organizer that appends to l.
func New(l *ledger.ChangeLedger, c *classify.Classifier, opts Options) *Organizer {
	o := &Organizer{
		ledger:     l,
		classifier: c,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		onMove:     opts.OnMove,
		rename:     opts.Rename,
		exclude:    opts.Exclude,
	}
	if o.classifier == nil {
		o.classifier = classify.New()
	}
	if o.log == nil {
		o.log = logging.Nop()
	}
	if o.rename == nil {
		o.rename = os.Rename
	}
	return o
}

// EnsureCategoryDirs creates every missing category directory in dir, in
// category order, logging each creation after it succeeded. It returns the
// paths of all category directories of dir, existing or created.
func (o *Organizer) EnsureCategoryDirs(dir string, res *Result) []string {
	cats := o.classifier.Categories()
	paths := make([]string, 0, len(cats))
	for _, cat := range cats {
		p := filepath.Join(dir, string(cat))
		paths = append(paths, p)
		if fsutil.Exists(p) {
			continue
		}
		if err := os.Mkdir(p, 0755); err != nil {
			o.fail(res, Failure{Op: "mkdir", Path: p, Err: err})
			continue
		}
		o.ledger.RecordFolderCreation(p)
		o.metrics.RecordFolderCreated()
		res.FoldersCreated++
		o.log.Debug("created category folder", map[string]any{"path": p})
	}
	return paths
}

// OrganizeDir sorts the regular files directly inside dir. Per-file
// failures are collected in res and never stop the batch. It returns the
// category directory paths of dir.
func (o *Organizer) OrganizeDir(dir string, res *Result) ([]string, error) {
	files, err := walker.Files(dir)
	if err != nil {
		return nil, errclass.Classify(err)
	}
	res.DirsVisited++

	catDirs := o.EnsureCategoryDirs(dir, res)

	for _, group := range o.classifier.Group(files) {
		catDir := filepath.Join(dir, string(group.Category))
		for _, name := range group.Files {
			src := filepath.Join(dir, name)
			dst := pathutil.UniquePath(filepath.Join(catDir, name))
			if err := o.rename(src, dst); err != nil {
				o.fail(res, Failure{Op: "move", Path: src, Target: dst, Err: err})
				o.metrics.RecordMove(false)
				continue
			}
			o.ledger.RecordMove(src, dst)
			o.metrics.RecordMove(true)
			res.FilesMoved++
			o.log.Info("moved file", map[string]any{"src": src, "dst": dst})
			if o.onMove != nil {
				o.onMove(src, dst)
			}
		}
	}
	return catDirs, nil
}

// Run organizes root and, when depth != 0, its subdirectories down to depth
// levels (negative is unbounded). Category directories are never descended
// into. Only a failure to read root itself is returned as an error.
func (o *Organizer) Run(root string, depth int) (*Result, error) {
	res := &Result{}
	w := walker.New(func(dir string, err error) {
		o.fail(res, Failure{Op: "list", Path: dir, Err: err})
	}, o.exclude...)
	err := w.Walk(root, depth, func(dir string) ([]string, error) {
		return o.OrganizeDir(dir, res)
	})
	if err != nil {
		return res, fmt.Errorf("organize %s: %w", root, err)
	}
	return res, nil
}

func (o *Organizer) fail(res *Result, f Failure) {
	f.Err = errclass.Classify(f.Err)
	f.Code = errclass.Code(f.Err)
	f.Detail = f.Err.Error()
	res.Failures = append(res.Failures, f)

	fields := map[string]any{"op": f.Op, "path": f.Path, "code": f.Code, "error": f.Detail}
	if f.Target != "" {
		fields["dst"] = f.Target
	}
	o.log.Warn("operation failed", fields)
}

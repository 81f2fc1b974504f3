// Package walker enumerates the directories and files an organize run visits.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// VisitFunc processes one directory and returns the paths of the
// subdirectories that must not be descended into. Those are the category
// directories used at this level; they are skipped by exact path, never by
// name matching.
type VisitFunc func(dir string) (exclude []string, err error)

// ErrorFunc receives errors that did not stop the walk.
type ErrorFunc func(dir string, err error)

// Walker performs a depth-bounded, pre-order directory walk.
type Walker struct {
	onError ErrorFunc
	exclude []string
}

// New creates a walker. onError may be nil. Directories in exclude are
// never descended into at any level, matched by exact path.
func New(onError ErrorFunc, exclude ...string) *Walker {
	if onError == nil {
		onError = func(string, error) {}
	}
	w := &Walker{onError: onError}
	for _, p := range exclude {
		if p != "" {
			w.exclude = append(w.exclude, filepath.Clean(p))
		}
	}
	return w
}

// Files returns the names of the regular files directly inside dir, sorted.
// A symlink is returned when its target is a regular file; the link itself
// is what gets moved. Directories, symlinks to directories and dangling
// symlinks are not returned.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		switch {
		case e.Type().IsRegular():
			names = append(names, e.Name())
		case e.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err == nil && info.Mode().IsRegular() {
				names = append(names, e.Name())
			}
		}
	}
	return names, nil
}

// Subdirs returns the paths of the directories directly inside dir, sorted,
// skipping any path in exclude. Symlinks to directories are not followed.
func Subdirs(dir string, exclude map[string]struct{}) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if _, skip := exclude[filepath.Clean(p)]; skip {
			continue
		}
		dirs = append(dirs, p)
	}
	return dirs, nil
}

// Walk visits root and then, while depth allows, each subdirectory that the
// parent's visit did not exclude. depth < 0 is unbounded, 0 visits root only,
// n descends n levels. A visit error on root is returned; errors below root
// are passed to the walker's ErrorFunc and do not stop siblings.
func (w *Walker) Walk(root string, depth int, visit VisitFunc) error {
	exclude, err := visit(root)
	if err != nil {
		return err
	}
	w.descend(root, depth, exclude, visit)
	return nil
}

func (w *Walker) descend(dir string, depth int, exclude []string, visit VisitFunc) {
	if depth == 0 {
		return
	}
	skip := make(map[string]struct{}, len(exclude)+len(w.exclude))
	for _, p := range w.exclude {
		skip[p] = struct{}{}
	}
	for _, p := range exclude {
		skip[filepath.Clean(p)] = struct{}{}
	}

	subdirs, err := Subdirs(dir, skip)
	if err != nil {
		w.onError(dir, err)
		return
	}
	for _, sub := range subdirs {
		childExclude, err := visit(sub)
		if err != nil {
			w.onError(sub, err)
			continue
		}
		w.descend(sub, depth-1, childExclude, visit)
	}
}

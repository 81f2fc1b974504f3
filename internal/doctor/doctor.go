// Package doctor checks the health of a tidy state directory and the
// artifacts it holds.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jvs-project/tidy/internal/audit"
	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/internal/lock"
	"github.com/jvs-project/tidy/pkg/fsutil"
	"github.com/jvs-project/tidy/pkg/model"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

const tmpPrefix = ".tidy-tmp-"

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy   bool      `json:"healthy"`
	Artifacts int       `json:"artifacts"`
	Findings  []Finding `json:"findings"`
}

func (r *Result) add(f Finding) {
	r.Findings = append(r.Findings, f)
	if f.Severity == SeverityError || f.Severity == SeverityCritical {
		r.Healthy = false
	}
}

// Doctor performs state directory health checks.
type Doctor struct {
	stateDir string
	logDir   string
}

// NewDoctor creates a new doctor.
func NewDoctor(stateDir, logDir string) *Doctor {
	return &Doctor{stateDir: stateDir, logDir: logDir}
}

// Check runs all diagnostic checks.
func (d *Doctor) Check() *Result {
	result := &Result{Healthy: true}

	d.checkStateDir(result)
	d.checkArtifacts(result)
	d.checkHistory(result)
	d.checkLock(result)
	d.checkOrphanTmp(result)

	return result
}

func (d *Doctor) checkStateDir(result *Result) {
	for _, dir := range []string{d.stateDir, d.logDir} {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			// Created on first run.
			continue
		}
		if err != nil {
			result.add(Finding{Category: "state", Description: fmt.Sprintf("cannot stat: %v", err), Severity: SeverityError, Path: dir})
			continue
		}
		if !info.IsDir() {
			result.add(Finding{Category: "state", Description: "not a directory", Severity: SeverityCritical, Path: dir})
			continue
		}
		probe, err := os.CreateTemp(dir, tmpPrefix+"probe-*")
		if err != nil {
			result.add(Finding{Category: "state", Description: fmt.Sprintf("directory not writable: %v", err), Severity: SeverityCritical, Path: dir})
			continue
		}
		probe.Close()
		os.Remove(probe.Name())
	}
}

func (d *Doctor) checkArtifacts(result *Result) {
	infos, err := ledger.List(d.logDir)
	if err != nil {
		result.add(Finding{Category: "artifact", Description: fmt.Sprintf("cannot list artifacts: %v", err), Severity: SeverityError, Path: d.logDir})
		return
	}
	result.Artifacts = len(infos)

	for _, info := range infos {
		art, err := ledger.Load(info.Path)
		if err != nil {
			result.add(Finding{
				Category:    "artifact",
				Description: fmt.Sprintf("artifact cannot be reverted: %v", err),
				Severity:    SeverityError,
				Path:        info.Path,
			})
			continue
		}

		moves, missing := 0, 0
		for _, c := range art.Changes {
			if c.Kind != model.ChangeMove {
				continue
			}
			moves++
			if !fsutil.Exists(c.Destination) {
				missing++
			}
		}
		switch {
		case moves > 0 && missing == moves:
			result.add(Finding{
				Category:    "artifact",
				Description: fmt.Sprintf("stale: none of the %d moved files are at their recorded destination", moves),
				Severity:    SeverityWarning,
				Path:        info.Path,
			})
		case missing > 0:
			result.add(Finding{
				Category:    "artifact",
				Description: fmt.Sprintf("%d of %d moved files are no longer at their recorded destination", missing, moves),
				Severity:    SeverityInfo,
				Path:        info.Path,
			})
		}
	}
}

func (d *Doctor) checkHistory(result *Result) {
	path := filepath.Join(d.stateDir, audit.FileName)
	if !fsutil.Exists(path) {
		return
	}
	if _, err := audit.VerifyChain(path); err != nil {
		result.add(Finding{
			Category:    "history",
			Description: err.Error(),
			Severity:    SeverityCritical,
			Path:        path,
		})
	}
}

func (d *Doctor) checkLock(result *Result) {
	mgr := lock.NewManager(d.stateDir)
	state, holder, err := mgr.Status()
	if err != nil || state != lock.StateHeld {
		return
	}
	desc := "a tidy run currently holds the lock"
	if holder != nil {
		desc = fmt.Sprintf("locked by %s run %s (pid %d)", holder.Purpose, holder.RunID, holder.PID)
	}
	result.add(Finding{Category: "lock", Description: desc, Severity: SeverityInfo, Path: mgr.Path()})
}

func (d *Doctor) checkOrphanTmp(result *Result) {
	for _, path := range d.orphanTmp() {
		result.add(Finding{
			Category:    "tmp",
			Description: fmt.Sprintf("orphan temp file: %s", filepath.Base(path)),
			Severity:    SeverityInfo,
			Path:        path,
		})
	}
}

func (d *Doctor) orphanTmp() []string {
	var out []string
	seen := make(map[string]bool)
	for _, dir := range []string{d.stateDir, d.logDir} {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), tmpPrefix) && !e.IsDir() {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	return out
}

// RepairAction describes an available repair.
type RepairAction struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// RepairResult reports one executed repair.
type RepairResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Cleaned int    `json:"cleaned"`
	Message string `json:"message"`
}

// ListRepairActions returns the repairs Repair understands.
func (d *Doctor) ListRepairActions() []RepairAction {
	return []RepairAction{
		{ID: "clean_tmp", Description: "Remove orphan temp files left by interrupted writes"},
	}
}

// Repair runs the named repair actions.
func (d *Doctor) Repair(actions []string) ([]RepairResult, error) {
	var results []RepairResult
	for _, action := range actions {
		switch action {
		case "clean_tmp":
			cleaned := 0
			for _, path := range d.orphanTmp() {
				if err := os.Remove(path); err == nil {
					cleaned++
				}
			}
			results = append(results, RepairResult{
				Action:  action,
				Success: true,
				Cleaned: cleaned,
				Message: fmt.Sprintf("removed %d temp files", cleaned),
			})
		default:
			return results, fmt.Errorf("unknown repair action: %s", action)
		}
	}
	return results, nil
}

// Package gc prunes change ledger artifacts that fall outside the
// retention policy. A pruned artifact can no longer be reverted.
package gc

import (
	"fmt"
	"os"
	"time"

	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/uuidutil"
)

// RetentionPolicy decides which artifacts are protected from pruning.
type RetentionPolicy struct {
	// KeepMinArtifacts protects the newest N artifacts.
	KeepMinArtifacts int `json:"keep_min_artifacts"`
	// KeepMinAge protects artifacts younger than this.
	KeepMinAge time.Duration `json:"keep_min_age"`
}

// Plan lists what a prune would delete.
type Plan struct {
	PlanID       string                `json:"plan_id"`
	CreatedAt    time.Time             `json:"created_at"`
	Policy       RetentionPolicy       `json:"retention_policy"`
	Protected    []ledger.ArtifactInfo `json:"protected"`
	ToDelete     []ledger.ArtifactInfo `json:"to_delete"`
	ReclaimBytes int64                 `json:"reclaim_bytes"`
}

// Failure is an artifact that could not be deleted.
type Failure struct {
	Path  string `json:"path"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RunResult reports an executed plan.
type RunResult struct {
	PlanID   string    `json:"plan_id"`
	Deleted  []string  `json:"deleted"`
	Failures []Failure `json:"failures,omitempty"`
}

// Collector applies a retention policy to one log directory.
type Collector struct {
	logDir string
	policy RetentionPolicy
	now    func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(logDir string, policy RetentionPolicy) *Collector {
	return &Collector{logDir: logDir, policy: policy, now: time.Now}
}

// WithClock replaces the collector's time source.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Plan computes which artifacts are deletable. An artifact is protected
// when it is among the newest KeepMinArtifacts or younger than KeepMinAge.
func (c *Collector) Plan() (*Plan, error) {
	infos, err := ledger.List(c.logDir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	now := c.now()
	plan := &Plan{
		PlanID:    uuidutil.NewV4(),
		CreatedAt: now.UTC(),
		Policy:    c.policy,
	}

	// infos is oldest first.
	newestStart := len(infos) - c.policy.KeepMinArtifacts
	for i, info := range infos {
		protected := i >= newestStart || now.Sub(info.CreatedAt) < c.policy.KeepMinAge
		if protected {
			plan.Protected = append(plan.Protected, info)
			continue
		}
		plan.ToDelete = append(plan.ToDelete, info)
		plan.ReclaimBytes += info.Size
	}
	return plan, nil
}

// Run deletes the artifacts in plan, continuing past individual failures.
// Artifacts that disappeared since planning are treated as deleted.
func (c *Collector) Run(plan *Plan) *RunResult {
	res := &RunResult{PlanID: plan.PlanID}
	for _, info := range plan.ToDelete {
		err := os.Remove(info.Path)
		if err != nil && !os.IsNotExist(err) {
			err = errclass.Classify(err)
			res.Failures = append(res.Failures, Failure{
				Path:  info.Path,
				Code:  errclass.Code(err),
				Error: err.Error(),
			})
			continue
		}
		res.Deleted = append(res.Deleted, info.Path)
	}
	return res
}

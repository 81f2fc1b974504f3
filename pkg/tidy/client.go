package tidy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jvs-project/tidy/internal/audit"
	"github.com/jvs-project/tidy/internal/classify"
	"github.com/jvs-project/tidy/internal/doctor"
	"github.com/jvs-project/tidy/internal/gc"
	"github.com/jvs-project/tidy/internal/ledger"
	"github.com/jvs-project/tidy/internal/lock"
	"github.com/jvs-project/tidy/internal/organizer"
	"github.com/jvs-project/tidy/internal/revert"
	"github.com/jvs-project/tidy/pkg/config"
	"github.com/jvs-project/tidy/pkg/errclass"
	"github.com/jvs-project/tidy/pkg/logging"
	"github.com/jvs-project/tidy/pkg/metrics"
	"github.com/jvs-project/tidy/pkg/model"
	"github.com/jvs-project/tidy/pkg/progress"
	"github.com/jvs-project/tidy/pkg/uuidutil"
	"github.com/jvs-project/tidy/pkg/webhook"
)

// Options configures a Client.
type Options struct {
	StateDir    string            // Defaults to $TIDY_HOME or ~/.tidy
	Config      *config.Config    // Loaded from <StateDir>/config.yaml when nil
	Logger      *logging.Logger   // Discards output when nil
	Metrics     *metrics.Registry // A fresh registry when nil
	MetricsFile string            // Overrides metrics_file from the config
}

// OrganizeOptions configures an organize run.
type OrganizeOptions struct {
	Path  string // Directory to organize; defaults to default_path from the config
	Depth int    // 0 organizes Path only, n descends n levels, negative is unbounded
	// OnMove is called after each logged move.
	OnMove func(source, destination string)
}

// OrganizeResult reports an organize run.
type OrganizeResult struct {
	RunID    string `json:"run_id"`
	BasePath string `json:"base_path"`
	Artifact string `json:"artifact"`
	Changes  int    `json:"changes"`
	*organizer.Result
}

// RevertOptions configures a revert run.
type RevertOptions struct {
	// Artifact is a ledger artifact path or a file name inside the log directory.
	Artifact string
	Progress progress.Callback
	// KeepArtifact leaves the artifact in place after the pass.
	KeepArtifact bool
}

// RevertResult reports a revert run.
type RevertResult struct {
	RunID string `json:"run_id"`
	*revert.Result
}

// PruneResult reports a retention pass.
type PruneResult struct {
	Plan   *gc.Plan      `json:"plan"`
	Run    *gc.RunResult `json:"run,omitempty"`
	DryRun bool          `json:"dry_run"`
}

// Client runs organize and revert operations against one state directory.
type Client struct {
	stateDir    string
	logDir      string
	cfg         *config.Config
	classifier  *classify.Classifier
	log         *logging.Logger
	metrics     *metrics.Registry
	metricsFile string
	history     *audit.FileAppender
	locks       *lock.Manager
	hooks       *webhook.Client
}

// Open creates a client. The state directory is created lazily by the
// first run.
func Open(opts Options) (*Client, error) {
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = config.DefaultStateDir()
	}
	stateDir, err := filepath.Abs(stateDir)
	if err != nil {
		return nil, fmt.Errorf("tidy open: %w", err)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg, err = config.Load(stateDir)
		if err != nil {
			return nil, fmt.Errorf("tidy open: %w", err)
		}
	}

	classifier, err := classify.NewWithExtensions(cfg.Categories)
	if err != nil {
		return nil, fmt.Errorf("tidy open: categories: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	metricsFile := opts.MetricsFile
	if metricsFile == "" {
		metricsFile = cfg.ResolveMetricsFile()
	}

	logDir, err := filepath.Abs(cfg.ResolveLogDir(stateDir))
	if err != nil {
		return nil, fmt.Errorf("tidy open: %w", err)
	}

	return &Client{
		stateDir:    stateDir,
		logDir:      logDir,
		cfg:         cfg,
		classifier:  classifier,
		log:         log,
		metrics:     reg,
		metricsFile: metricsFile,
		history:     audit.NewFileAppender(filepath.Join(stateDir, audit.FileName)),
		locks:       lock.NewManager(stateDir),
		hooks:       webhook.NewClient(cfg.Webhooks, log),
	}, nil
}

// Close releases background resources.
func (c *Client) Close() error {
	return c.hooks.Close()
}

// Organize sorts the files of opts.Path into category folders and persists
// the run's change ledger. Per-file failures are reported in the result;
// an error is returned only when the run could not start or its ledger
// could not be written.
func (c *Client) Organize(ctx context.Context, opts OrganizeOptions) (*OrganizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuidutil.NewV4()

	base := opts.Path
	if base == "" {
		base = c.cfg.ResolveDefaultPath()
	}
	base, err := resolveDir(base)
	if err != nil {
		c.finishOrganize(runID, base, start, err)
		return nil, err
	}

	if within(base, c.stateDir) || within(base, c.logDir) {
		err := errclass.ErrNameInvalid.WithMessagef("%s holds tidy state and cannot be organized", base)
		c.finishOrganize(runID, base, start, err)
		return nil, err
	}

	lk, err := c.locks.Acquire(runID, "organize")
	if err != nil {
		c.finishOrganize(runID, base, start, err)
		return nil, err
	}
	defer lk.Release()

	log := c.log.WithFields(map[string]any{"run_id": runID})
	log.Info("organize started", map[string]any{"path": base, "depth": opts.Depth})

	l := ledger.New(base, c.logDir)
	o := organizer.New(l, c.classifier, organizer.Options{
		Logger:  log,
		Metrics: c.metrics,
		OnMove:  opts.OnMove,
		Exclude: []string{c.stateDir, c.logDir},
	})
	res, runErr := o.Run(base, opts.Depth)

	out := &OrganizeResult{RunID: runID, BasePath: base, Changes: l.Len(), Result: res}
	if runErr != nil && l.Len() == 0 {
		c.finishOrganize(runID, base, start, runErr)
		return out, runErr
	}

	artifact, err := l.Persist()
	if err != nil {
		err = fmt.Errorf("persist ledger: %w", err)
		c.finishOrganize(runID, base, start, err)
		return out, err
	}
	out.Artifact = artifact

	log.Info("organize finished", map[string]any{
		"artifact": artifact,
		"moved":    res.FilesMoved,
		"folders":  res.FoldersCreated,
		"failed":   len(res.Failures),
	})
	c.appendHistory(audit.Entry{
		EventType: model.EventTypeOrganize,
		RunID:     runID,
		BasePath:  base,
		Artifact:  artifact,
		Details: map[string]any{
			"depth":           opts.Depth,
			"files_moved":     res.FilesMoved,
			"folders_created": res.FoldersCreated,
			"failures":        len(res.Failures),
		},
	})
	c.metrics.ObserveRun("organize", runErr == nil, time.Since(start))
	c.writeMetrics()
	c.notify(c.hooks.SendOrganizeComplete(runID, base, artifact, res.FilesMoved, len(res.Failures), res.FoldersCreated, false))
	return out, runErr
}

func (c *Client) finishOrganize(runID, base string, start time.Time, err error) {
	c.metrics.ObserveRun("organize", false, time.Since(start))
	c.writeMetrics()
	c.notify(c.hooks.SendOrganizeFailed(runID, base, err.Error(), false))
}

// Revert undoes the run recorded in opts.Artifact.
func (c *Client) Revert(ctx context.Context, opts RevertOptions) (*RevertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	runID := uuidutil.NewV4()
	path := c.ResolveArtifact(opts.Artifact)

	lk, err := c.locks.Acquire(runID, "revert")
	if err != nil {
		c.finishRevertFailed(runID, path, start, err)
		return nil, err
	}
	defer lk.Release()

	log := c.log.WithFields(map[string]any{"run_id": runID})
	log.Info("revert started", map[string]any{"artifact": path})

	r := revert.New(revert.Options{
		Logger:       log,
		Metrics:      c.metrics,
		Progress:     opts.Progress,
		KeepArtifact: opts.KeepArtifact,
	})
	res, err := r.Revert(path)
	if err != nil {
		err = fmt.Errorf("revert %s: %w", path, err)
		c.finishRevertFailed(runID, path, start, err)
		return nil, err
	}

	log.Info("revert finished", map[string]any{
		"reverted": res.Reverted,
		"removed":  res.Removed,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
	})
	c.appendHistory(audit.Entry{
		EventType: model.EventTypeRevert,
		RunID:     runID,
		BasePath:  res.BasePath,
		Artifact:  path,
		Details: map[string]any{
			"reverted":         res.Reverted,
			"folders_removed":  res.Removed,
			"skipped":          res.Skipped,
			"failed":           res.Failed,
			"artifact_removed": res.ArtifactRemoved,
		},
	})
	c.metrics.ObserveRun("revert", res.Failed == 0, time.Since(start))
	c.writeMetrics()
	c.notify(c.hooks.SendRevertComplete(runID, res.BasePath, path, res.Reverted, res.Removed, res.Skipped, res.Failed, false))
	return &RevertResult{RunID: runID, Result: res}, nil
}

func (c *Client) finishRevertFailed(runID, artifact string, start time.Time, err error) {
	c.metrics.ObserveRun("revert", false, time.Since(start))
	c.writeMetrics()
	c.notify(c.hooks.SendRevertFailed(runID, artifact, err.Error(), false))
}

// RevertLatest reverts the newest artifact in the log directory.
func (c *Client) RevertLatest(ctx context.Context, opts RevertOptions) (*RevertResult, error) {
	latest, err := ledger.Latest(c.logDir)
	if err != nil {
		return nil, err
	}
	opts.Artifact = latest.Path
	return c.Revert(ctx, opts)
}

// Artifacts lists the ledger artifacts, oldest first.
func (c *Client) Artifacts() ([]ledger.ArtifactInfo, error) {
	return ledger.List(c.logDir)
}

// LoadArtifact reads an artifact by path or name.
func (c *Client) LoadArtifact(artifact string) (*model.LedgerArtifact, error) {
	return ledger.Load(c.ResolveArtifact(artifact))
}

// ResolveArtifact turns a bare artifact file name into a path inside the
// log directory. Paths are returned unchanged.
func (c *Client) ResolveArtifact(artifact string) string {
	if artifact == "" || strings.ContainsRune(artifact, filepath.Separator) || strings.ContainsRune(artifact, '/') {
		return artifact
	}
	if _, ok := ledger.ParseArtifactName(artifact); ok {
		return filepath.Join(c.logDir, artifact)
	}
	return artifact
}

// Prune deletes artifacts outside the configured retention policy.
func (c *Client) Prune(ctx context.Context, dryRun bool) (*PruneResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	age, err := c.cfg.KeepMinAge()
	if err != nil {
		return nil, err
	}
	collector := gc.NewCollector(c.logDir, gc.RetentionPolicy{
		KeepMinArtifacts: c.cfg.RetentionPolicy.KeepMinArtifacts,
		KeepMinAge:       age,
	})
	plan, err := collector.Plan()
	if err != nil {
		return nil, fmt.Errorf("prune plan: %w", err)
	}
	if dryRun {
		return &PruneResult{Plan: plan, DryRun: true}, nil
	}

	runID := uuidutil.NewV4()
	lk, err := c.locks.Acquire(runID, "prune")
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	run := collector.Run(plan)
	c.metrics.RecordPrune(len(run.Deleted))
	if len(run.Deleted) > 0 || len(run.Failures) > 0 {
		c.appendHistory(audit.Entry{
			EventType: model.EventTypePrune,
			RunID:     runID,
			Details: map[string]any{
				"plan_id":  plan.PlanID,
				"deleted":  len(run.Deleted),
				"failures": len(run.Failures),
			},
		})
	}
	c.writeMetrics()
	c.notify(c.hooks.SendPruneComplete(len(run.Deleted), false))
	return &PruneResult{Plan: plan, Run: run}, nil
}

// History returns the run history, oldest first.
func (c *Client) History() ([]model.HistoryRecord, error) {
	return audit.Read(c.history.Path())
}

// VerifyHistory checks the history hash chain.
func (c *Client) VerifyHistory() (int, error) {
	return audit.VerifyChain(c.history.Path())
}

// Doctor runs health checks on the state directory.
func (c *Client) Doctor() *doctor.Result {
	return doctor.NewDoctor(c.stateDir, c.logDir).Check()
}

// Repair runs doctor repair actions.
func (c *Client) Repair(actions []string) ([]doctor.RepairResult, error) {
	return doctor.NewDoctor(c.stateDir, c.logDir).Repair(actions)
}

// StateDir returns the absolute state directory.
func (c *Client) StateDir() string { return c.stateDir }

// LogDir returns the directory holding ledger artifacts.
func (c *Client) LogDir() string { return c.logDir }

// Config returns the effective configuration.
func (c *Client) Config() *config.Config { return c.cfg }

// Categories returns the category labels in processing order.
func (c *Client) Categories() []classify.Category { return c.classifier.Categories() }

// Metrics returns the client's metrics registry.
func (c *Client) Metrics() *metrics.Registry { return c.metrics }

func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return abs, errclass.Classify(err)
	}
	if !info.IsDir() {
		return abs, errclass.ErrNameInvalid.WithMessagef("%s is not a directory", abs)
	}
	return abs, nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Client) appendHistory(e audit.Entry) {
	if _, err := c.history.Append(e); err != nil {
		c.log.Warn("could not record run history", map[string]any{"run_id": e.RunID, "error": err.Error()})
	}
}

func (c *Client) writeMetrics() {
	if err := c.metrics.WriteTextfile(c.metricsFile); err != nil {
		c.log.Warn("could not write metrics file", map[string]any{"path": c.metricsFile, "error": err.Error()})
	}
}

func (c *Client) notify(err error) {
	if err != nil {
		c.log.Warn("webhook delivery failed", map[string]any{"error": err.Error()})
	}
}

// Package metrics exposes Prometheus counters for organize, revert and
// prune runs. A CLI process is short-lived, so metrics are exported by
// writing a node_exporter textfile rather than serving /metrics.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tidy"

// Revert outcome labels.
const (
	OutcomeReverted = "reverted"
	OutcomeRemoved  = "removed"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Registry holds tidy metrics. All methods are safe on a nil *Registry.
type Registry struct {
	registry *prometheus.Registry

	filesMoved     prometheus.Counter
	moveFailures   prometheus.Counter
	foldersCreated prometheus.Counter
	revertRecords  *prometheus.CounterVec
	artifactsPrune prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	lastRun        *prometheus.GaugeVec
}

// NewRegistry creates a registry with all tidy collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		filesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "organize", Name: "files_moved_total",
			Help: "Files moved into category folders.",
		}),
		moveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "organize", Name: "move_failures_total",
			Help: "Files that could not be moved.",
		}),
		foldersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "organize", Name: "folders_created_total",
			Help: "Category folders created.",
		}),
		revertRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "revert", Name: "records_total",
			Help: "Change records processed by revert, by outcome.",
		}, []string{"outcome"}),
		artifactsPrune: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "logs", Name: "artifacts_pruned_total",
			Help: "Change ledger artifacts removed by retention.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Completed runs by operation and status.",
		}, []string{"operation", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Run duration by operation.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"operation"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time of the last completed run by operation.",
		}, []string{"operation"}),
	}
	r.registry.MustRegister(
		r.filesMoved, r.moveFailures, r.foldersCreated, r.revertRecords,
		r.artifactsPrune, r.runs, r.runDuration, r.lastRun,
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordMove counts one attempted file move.
func (r *Registry) RecordMove(success bool) {
	if r == nil {
		return
	}
	if success {
		r.filesMoved.Inc()
	} else {
		r.moveFailures.Inc()
	}
}

// RecordFolderCreated counts one created category folder.
func (r *Registry) RecordFolderCreated() {
	if r == nil {
		return
	}
	r.foldersCreated.Inc()
}

// RecordRevert counts one processed change record.
func (r *Registry) RecordRevert(outcome string) {
	if r == nil {
		return
	}
	r.revertRecords.WithLabelValues(outcome).Inc()
}

// RecordPrune counts removed ledger artifacts.
func (r *Registry) RecordPrune(deleted int) {
	if r == nil || deleted <= 0 {
		return
	}
	r.artifactsPrune.Add(float64(deleted))
}

// ObserveRun records a finished run.
func (r *Registry) ObserveRun(operation string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	r.runs.WithLabelValues(operation, status).Inc()
	r.runDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.lastRun.WithLabelValues(operation).SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter textfile collector. The write is atomic.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

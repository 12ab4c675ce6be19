// Package metrics records sync runs as Prometheus metrics and writes them in
// the node-exporter textfile format.
package metrics

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joe/gamesync/internal/syncengine"
)

// Recorder turns engine events into metrics. It implements syncengine.EventEmitter.
type Recorder struct {
	registry *prometheus.Registry
	clock    clockwork.Clock

	runsTotal        *prometheus.CounterVec
	filesUploaded    prometheus.Counter
	bytesUploaded    prometheus.Counter
	filesDeleted     prometheus.Counter
	filesProtected   prometheus.Gauge
	runDuration      prometheus.Gauge
	lastSuccess      prometheus.Gauge
	capacityRequired prometheus.Gauge
	capacityFree     prometheus.Gauge
	relinkFailures   prometheus.Counter
}

// NewRecorder returns a recorder with its own registry.
func NewRecorder(clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		clock:    clock,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamesync_runs_total",
			Help: "Sync runs by outcome",
		}, []string{"outcome", "transport"}),
		filesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamesync_files_uploaded_total",
			Help: "Files uploaded to the target",
		}),
		bytesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamesync_bytes_uploaded_total",
			Help: "Bytes uploaded to the target",
		}),
		filesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamesync_files_deleted_total",
			Help: "Stale files deleted from the target",
		}),
		filesProtected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamesync_files_protected",
			Help: "Stale files kept by protect globs in the last run",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamesync_last_run_duration_seconds",
			Help: "Duration of the last run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamesync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		capacityRequired: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamesync_capacity_required_bytes",
			Help: "Bytes the desired layout needs",
		}),
		capacityFree: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gamesync_capacity_available_bytes",
			Help: "Bytes available to the desired layout",
		}),
		relinkFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gamesync_relink_failures_total",
			Help: "Runs whose relink step failed",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Emit implements syncengine.EventEmitter.
func (r *Recorder) Emit(event syncengine.Event) {
	switch e := event.(type) {
	case syncengine.CapacityChecked:
		r.capacityRequired.Set(float64(e.Required))
		r.capacityFree.Set(float64(e.Available))
	case syncengine.PlanComputed:
		r.filesProtected.Set(float64(e.Plan.FilesProtected))
	case syncengine.SyncComplete:
		r.complete(e.Result)
	}
}

func (r *Recorder) complete(result *syncengine.SyncResult) {
	r.runDuration.Set(result.Duration.Seconds())
	r.runsTotal.WithLabelValues(Outcome(result), result.Transport).Inc()

	if result.Err != nil {
		return
	}

	r.filesUploaded.Add(float64(result.FilesUploaded))
	r.bytesUploaded.Add(float64(result.BytesUploaded))
	r.filesDeleted.Add(float64(result.FilesDeleted))

	if result.RelinkErr != nil {
		r.relinkFailures.Inc()
	}

	if !result.DryRun {
		r.lastSuccess.Set(float64(r.clock.Now().Unix()))
	}
}

// Outcome classifies a result for the runs_total label.
func Outcome(result *syncengine.SyncResult) string {
	switch {
	case result.Err == nil && result.DryRun:
		return "dry_run"
	case result.Err == nil:
		return "success"
	case errors.Is(result.Err, syncengine.ErrSyncAborted):
		return "aborted"
	default:
		return "error"
	}
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}

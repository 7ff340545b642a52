// Package metrics exposes Prometheus instrumentation for the command layer
// and the entity store.
//
// All Recorder methods are safe on a nil receiver, so components accept an
// optional *Recorder and call it unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hvaccore"

// Command directions.
const (
	DirectionApply = "apply"
	DirectionUndo  = "undo"
	DirectionRedo  = "redo"
)

// Recorder holds the collectors for one engine instance.
type Recorder struct {
	commands          *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	recomputeFailures prometheus.Counter
	historyDepth      *prometheus.GaugeVec
	entities          prometheus.Gauge
}

// New creates a Recorder and registers its collectors on reg.
// Registration panics on duplicate collectors, as promauto does.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		// Labels: type (command type), direction (apply, undo, redo)
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands applied, undone or redone",
		}, []string{"type", "direction"}),

		recomputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "recompute_duration_seconds",
			Help:      "Time to rebuild the connection graph and recompute airflow",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		recomputeFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "recompute_failures_total",
			Help:      "Recomputes that failed and kept previous airflow values",
		}),

		// Labels: stack (past, future)
		historyDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "depth",
			Help:      "Entries on each history stack",
		}, []string{"stack"}),

		entities: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities in the object store",
		}),
	}
}

// CommandApplied counts one command in the given direction.
func (r *Recorder) CommandApplied(cmdType, direction string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(cmdType, direction).Inc()
}

// ObserveRecompute records one recompute pass.
func (r *Recorder) ObserveRecompute(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.recomputeDuration.Observe(d.Seconds())
	if err != nil {
		r.recomputeFailures.Inc()
	}
}

// SetHistoryDepth records the size of both history stacks.
func (r *Recorder) SetHistoryDepth(past, future int) {
	if r == nil {
		return
	}
	r.historyDepth.WithLabelValues("past").Set(float64(past))
	r.historyDepth.WithLabelValues("future").Set(float64(future))
}

// SetEntities records the current entity count.
func (r *Recorder) SetEntities(n int) {
	if r == nil {
		return
	}
	r.entities.Set(float64(n))
}

// Package metrics counts scheduler operations on a private Prometheus
// registry. Nothing is served over HTTP; the shell prints a snapshot on
// request.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evsched"

// Operation names used as the "op" label.
const (
	OpInsert  = "insert"
	OpDelete  = "delete"
	OpOverlap = "overlap"
	OpFree    = "free_slots"
	OpList    = "list"
	OpImport  = "import"
	OpExport  = "export"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultMiss     = "miss"
	ResultError    = "error"
)

// Recorder records operation outcomes. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	events     prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Scheduler operations by kind and outcome.",
		}, []string{"op", "result"}),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events",
			Help:      "Number of events currently in the schedule.",
		}),
	}
	r.registry.MustRegister(r.operations, r.events)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Observe counts one operation.
func (r *Recorder) Observe(op, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
}

// SetEvents records the current schedule size.
func (r *Recorder) SetEvents(n int) {
	if r == nil {
		return
	}
	r.events.Set(float64(n))
}

// WriteSummary prints one line per sample, sorted, e.g.
//
//	evsched_operations_total{op="insert",result="ok"} 3
func (r *Recorder) WriteSummary(w io.Writer) error {
	if r == nil {
		_, err := fmt.Fprintln(w, "metrics disabled")
		return err
	}

	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, v))
		}
	}
	sort.Strings(lines)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

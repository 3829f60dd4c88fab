// Package metrics records operation counts and durations for the
// storage engine and tool dispatcher, grounded on shoal-provision's
// internal/provisioner/metrics package (a package-level registry plus
// Counter/HistogramVec pairs keyed by operation name). Unlike that
// teacher, ThreadBox never starts an HTTP listener — SPEC_FULL.md's
// --metrics mode dumps the registry's text exposition straight to
// stdout, so there is no promhttp.Handler here.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	OpWriteFile        = "write_file"
	OpReadFile         = "read_file"
	OpListDirectory    = "list_directory"
	OpRenameNode       = "rename_node"
	OpMoveNode         = "move_node"
	OpGetFileHistory   = "get_file_history"
	OpExportSessionZip = "export_session_zip"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
)

func init() {
	resetLocked()
}

// Reset clears and reinitialises all collectors. Used by tests to get a
// clean registry between cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

func resetLocked() {
	registry := prometheus.NewRegistry()

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadbox",
		Name:      "operations_total",
		Help:      "Total storage engine operations grouped by operation name.",
	}, []string{"op"})

	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "threadbox",
		Name:      "operation_duration_seconds",
		Help:      "Duration of storage engine operations by operation name.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"op"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadbox",
		Name:      "operation_errors_total",
		Help:      "Total storage engine operation failures grouped by operation name and error kind.",
	}, []string{"op", "kind"})

	registry.MustRegister(ops, dur, errs)

	reg = registry
	operations = ops
	operationDuration = dur
	operationErrors = errs
}

// Observe records one completed operation attempt: its name, duration,
// and — when it failed — the storage.Kind of the failure.
func Observe(op string, duration time.Duration, errKind string) {
	mu.RLock()
	defer mu.RUnlock()

	if operations != nil {
		operations.WithLabelValues(op).Inc()
	}
	if operationDuration != nil {
		operationDuration.WithLabelValues(op).Observe(duration.Seconds())
	}
	if errKind != "" && operationErrors != nil {
		operationErrors.WithLabelValues(op, errKind).Inc()
	}
}

// Track times a call to fn and records it under op, extracting a Kind
// label from the error when fn returns one that implements the
// optional `KindLabel() string` interface (storage.Error satisfies it).
func Track(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	kind := ""
	if kindErr, ok := err.(interface{ KindLabel() string }); ok {
		kind = kindErr.KindLabel()
	}
	Observe(op, time.Since(start), kind)
	return err
}

// DumpText renders the current registry in the Prometheus text exposition
// format, the payload cmd/threadbox's --metrics flag writes to stdout.
func DumpText() (string, error) {
	mu.RLock()
	registry := reg
	mu.RUnlock()

	families, err := registry.Gather()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	enc := expfmt.NewEncoder(&sb, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

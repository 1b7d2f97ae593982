// Package metrics is the process-wide metrics facade. Pipeline code records
// through the helpers here; the concrete backend (Datadog, or nothing) is
// chosen once at startup with SetBackend.
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Metric names understood by backends.
const (
	StepTotal           = "senkyo_step_total"
	StepDurationSeconds = "senkyo_step_duration_seconds"
	FieldsTotal         = "senkyo_fields_total"
	HTTPRequestsTotal   = "senkyo_http_requests_total"
	HTTPErrorsTotal     = "senkyo_http_errors_total"
	HTTPDurationSeconds = "senkyo_http_request_duration_seconds"
	HTTPDownloadBytes   = "senkyo_http_download_bytes"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process backend. A nil b disables metrics.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the backend if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep records one pipeline step outcome and its duration.
func RecordStep(step string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	b := current()
	l := Labels{"step": step, "status": status}
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordField records whether an extraction rule found its field.
func RecordField(field string, found bool) {
	status := "found"
	if !found {
		status = "missing"
	}
	current().IncCounter(FieldsTotal, 1, Labels{"field": field, "status": status})
}

// RecordHTTP records one HTTP attempt. status is 0 when no response was
// received.
func RecordHTTP(status int, err error, d time.Duration, bytes int64) {
	s := "none"
	if status > 0 {
		s = strconv.Itoa(status)
	}
	b := current()
	l := Labels{"status": s}
	b.IncCounter(HTTPRequestsTotal, 1, l)
	if err != nil || status < 200 || status >= 300 {
		b.IncCounter(HTTPErrorsTotal, 1, l)
	}
	b.ObserveHistogram(HTTPDurationSeconds, d.Seconds(), l)
	if bytes > 0 {
		b.ObserveHistogram(HTTPDownloadBytes, float64(bytes), l)
	}
}

// Package metrics counts the remote calls made during a single command and
// renders them as a report for debug logging.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Metrics collects per-operation call and error counters.
type Metrics struct {
	mu sync.Mutex

	calls     map[string]int64 // Remote calls by operation name
	errors    int64            // Calls that returned an error
	startTime time.Time        // When the command started
}

// NewMetrics creates a new Metrics instance with initialized counters
func NewMetrics() *Metrics {
	return &Metrics{
		calls:     make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordCall counts one remote call to op and whether it failed.
func (m *Metrics) RecordCall(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if err != nil {
		m.errors++
	}
}

// Calls returns the number of recorded calls to op.
func (m *Metrics) Calls(op string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Report is a snapshot of the counters at the end of a command.
type Report struct {
	StartTime  time.Time        `json:"startTime"`
	EndTime    time.Time        `json:"endTime"`
	Calls      map[string]int64 `json:"calls"`
	TotalCalls int64            `json:"totalCalls"`
	Errors     int64            `json:"errors"`
	Duration   time.Duration    `json:"duration"`
}

// GenerateReport snapshots the counters.
func (m *Metrics) GenerateReport() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	endTime := time.Now()
	calls := make(map[string]int64, len(m.calls))
	var total int64
	for op, n := range m.calls {
		calls[op] = n
		total += n
	}

	return Report{
		StartTime:  m.startTime,
		EndTime:    endTime,
		Calls:      calls,
		TotalCalls: total,
		Errors:     m.errors,
		Duration:   endTime.Sub(m.startTime),
	}
}

// MarshalJSON formats Duration as a string.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(r),
		Duration: r.Duration.String(),
	})
}

// String returns a one-line summary, operations sorted by name.
func (r Report) String() string {
	ops := make([]string, 0, len(r.Calls))
	for op := range r.Calls {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		parts = append(parts, fmt.Sprintf("%s=%d", op, r.Calls[op]))
	}

	return fmt.Sprintf("%d remote calls (%d failed) in %s [%s]",
		r.TotalCalls, r.Errors, r.Duration, strings.Join(parts, " "))
}

// LogReport logs the current report at debug level. The JSON report is
// attached as the "report" field.
func (m *Metrics) LogReport(logger log.FieldLogger) {
	r := m.GenerateReport()
	data, err := json.Marshal(r)
	if err != nil {
		logger.WithError(err).Warn("failed to encode metrics report")
		return
	}
	logger.WithField("report", string(data)).Debug(r.String())
}

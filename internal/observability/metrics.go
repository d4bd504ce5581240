package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu                 sync.Mutex
	requestCount       map[string]int64
	errorCount         map[string]int64
	syncOutcomes       map[string]int64
	importedIssues     int64
	timestampFallbacks int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		syncOutcomes: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSyncOutcome counts load/sync completions per repository.
func (m *Metrics) RecordSyncOutcome(repository, operation string, ok bool) {
	if m == nil {
		return
	}
	key := repository + "|" + operation + "|" + strconv.FormatBool(ok)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncOutcomes[key]++
}

// RecordImportedIssues counts issues persisted by the import step.
func (m *Metrics) RecordImportedIssues(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importedIssues += int64(count)
}

// RecordTimestampFallback counts tickets whose created-at had to fall back to
// the current time. A rising counter is a data-quality signal, the documents
// behind it need fixing.
func (m *Metrics) RecordTimestampFallback() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timestampFallbacks++
}

// TimestampFallbacks returns the current fallback count.
func (m *Metrics) TimestampFallbacks() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timestampFallbacks
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

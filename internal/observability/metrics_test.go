package observability

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_SnapshotCountsAndLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/login", http.MethodPost, 200, 10*time.Millisecond)
	m.RecordRequest("/login", http.MethodPost, 200, 30*time.Millisecond)
	m.RecordRequest("/login", http.MethodPost, 401, time.Millisecond)
	m.RecordError("/login", http.MethodPost, "UNAUTHORIZED")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/login|POST|200"])
	assert.Equal(t, int64(1), snap.Requests["/login|POST|401"])
	assert.Equal(t, int64(1), snap.Errors["/login|POST|UNAUTHORIZED"])
	assert.InDelta(t, 20.0, snap.AvgLatencyMS["/login|POST|200"], 0.001)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
	m.RecordError("/", http.MethodGet, "X")
	assert.Empty(t, m.Snapshot().Requests)
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest("/register", http.MethodPost, 201, time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), m.Snapshot().Requests["/register|POST|201"])
}

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// Mock StatsProvider
// =============================================================================

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	err   error
	calls int
}

func (m *mockStatsProvider) LibraryStats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats, m.err
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// =============================================================================
// Collector Tests
// =============================================================================

func TestCollectUpdatesLibraryGauges(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{
			TotalRecords: 12,
			Tagged:       7,
			Untagged:     4,
			Pending:      1,
			Directories:  3,
			ByFormat:     map[string]int{"image": 9, "txt": 3},
		},
	}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(LibraryRecordsTotal.WithLabelValues("tagged")); got != 7 {
		t.Errorf("tagged = %v, want 7", got)
	}
	if got := testutil.ToFloat64(LibraryRecordsTotal.WithLabelValues("untagged")); got != 4 {
		t.Errorf("untagged = %v, want 4", got)
	}
	if got := testutil.ToFloat64(LibraryDirectories); got != 3 {
		t.Errorf("directories = %v, want 3", got)
	}
	if got := testutil.ToFloat64(LibraryRecordsByFormat.WithLabelValues("image")); got != 9 {
		t.Errorf("image records = %v, want 9", got)
	}
}

func TestCollectResetsVanishedFormats(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{ByFormat: map[string]int{"heic": 2}},
	}

	c := NewCollector(provider, time.Hour)
	c.collect()

	provider.mu.Lock()
	provider.stats = Stats{ByFormat: map[string]int{}}
	provider.mu.Unlock()
	c.collect()

	if got := testutil.ToFloat64(LibraryRecordsByFormat.WithLabelValues("heic")); got != 0 {
		t.Errorf("heic records = %v, want 0 after format disappeared", got)
	}
}

func TestCollectKeepsGaugesOnProviderError(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{Directories: 5}}
	c := NewCollector(provider, time.Hour)
	c.collect()

	provider.mu.Lock()
	provider.err = errors.New("root store unreadable")
	provider.stats = Stats{Directories: 99}
	provider.mu.Unlock()
	c.collect()

	if got := testutil.ToFloat64(LibraryDirectories); got != 5 {
		t.Errorf("directories = %v, want previous value 5", got)
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect panicked with nil provider: %v", r)
		}
	}()
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected at least 2 collections, got %d", provider.callCount())
	}
}

// =============================================================================
// Filesystem Observer Tests
// =============================================================================

func TestFilesystemObserverCountsErrors(t *testing.T) {
	o := NewFilesystemObserver()
	before := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("media", "read"))

	o.ObserveOperation("media", "read", 0.01, nil)
	o.ObserveOperation("media", "read", 0.01, errors.New("boom"))

	after := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("media", "read"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
}

func TestFilesystemObserverRetryCounters(t *testing.T) {
	o := NewFilesystemObserver()

	tests := []struct {
		name    string
		observe func()
		counter func() float64
	}{
		{"attempt", func() { o.ObserveRetryAttempt("stat", "media") }, func() float64 {
			return testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("stat", "media"))
		}},
		{"success", func() { o.ObserveRetrySuccess("stat", "media") }, func() float64 {
			return testutil.ToFloat64(FilesystemRetrySuccess.WithLabelValues("stat", "media"))
		}},
		{"failure", func() { o.ObserveRetryFailure("stat", "media") }, func() float64 {
			return testutil.ToFloat64(FilesystemRetryFailures.WithLabelValues("stat", "media"))
		}},
		{"stale", func() { o.ObserveStaleError("stat", "media") }, func() float64 {
			return testutil.ToFloat64(FilesystemStaleErrors.WithLabelValues("stat", "media"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.counter()
			tt.observe()
			if got := tt.counter() - before; got != 1 {
				t.Errorf("counter delta = %v, want 1", got)
			}
		})
	}
}

// =============================================================================
// Initialization Tests
// =============================================================================

func TestInitializeMetricsPrepopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(SweepRunsTotal); n != 10 {
		t.Errorf("SweepRunsTotal series = %d, want 10", n)
	}
	if n := testutil.CollectAndCount(CaptionRequestsTotal); n != 4 {
		t.Errorf("CaptionRequestsTotal series = %d, want 4", n)
	}
	if n := testutil.CollectAndCount(HiddenAttributeErrors); n != 3 {
		t.Errorf("HiddenAttributeErrors series = %d, want 3", n)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("app info = %v, want 1", got)
	}
}

package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"visionvault/internal/hidden"
	"visionvault/internal/logging"
	"visionvault/internal/media"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
)

// Trigger names what started a sweep. It is used as a metrics label.
type Trigger string

// Sweep triggers.
const (
	TriggerStartup  Trigger = "startup"
	TriggerPeriodic Trigger = "periodic"
	TriggerPoll     Trigger = "poll"
	TriggerWatch    Trigger = "watch"
	TriggerManual   Trigger = "manual"
)

const (
	// Default polling interval for change detection
	defaultPollInterval = 30 * time.Second

	sweepKey = "sweep"
)

// Options configures an Indexer.
type Options struct {
	// SweepInterval schedules a full sweep; 0 disables periodic sweeps.
	SweepInterval time.Duration
	// PollInterval is how often the root is checked for changes.
	PollInterval time.Duration
	// SweepOnStart runs a sweep when Start is called.
	SweepOnStart bool
	// Watch enables fsnotify based change detection.
	Watch bool
	// Debounce delays watcher triggered sweeps.
	Debounce time.Duration
	// OnSweepComplete is called after every successful sweep.
	OnSweepComplete func(Result)
}

// Indexer runs reinitialization sweeps on demand and in the background.
type Indexer struct {
	scanner *media.Scanner
	sync    *tagsync.Coordinator
	dirs    *tagstore.DirStore
	root    string
	opts    Options

	group    singleflight.Group
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	watcher  *media.Watcher

	mu                sync.Mutex
	sweeping          bool
	sweepStarted      time.Time
	lastSweep         time.Time
	lastResult        *Result
	initialComplete   bool
	initialSweepError error
	startTime         time.Time

	// Last known state for lightweight change detection
	stateMu   sync.RWMutex
	lastState treeState
}

// New creates an Indexer over the scanner's tree.
func New(scanner *media.Scanner, coord *tagsync.Coordinator, opts Options) *Indexer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	idx := &Indexer{
		scanner:   scanner,
		sync:      coord,
		dirs:      coord.DirStore(),
		root:      scanner.Root(),
		opts:      opts,
		stopChan:  make(chan struct{}),
		startTime: time.Now(),
	}
	coord.OnPropagate(idx.noteOwnChanges)
	return idx
}

// Start begins background sweeping. The startup sweep, when enabled, runs
// in the background; until it finishes the indexer is not ready.
func (idx *Indexer) Start(ctx context.Context) error {
	if idx.opts.SweepOnStart {
		idx.wg.Add(1)
		go func() {
			defer idx.wg.Done()
			logging.Info("Starting initial sweep in background...")
			if _, err := idx.Reinitialize(ctx, TriggerStartup); err != nil {
				logging.Error("Initial sweep error: %v", err)
				idx.mu.Lock()
				idx.initialSweepError = err
				idx.mu.Unlock()
			}
		}()
	} else {
		idx.mu.Lock()
		idx.initialComplete = true
		idx.mu.Unlock()
		idx.updateLastKnownState()
	}

	if idx.opts.Watch {
		idx.watcher = media.NewWatcher(idx.root, idx.opts.Debounce, func() {
			idx.TriggerAsync(TriggerWatch)
		})
		if err := idx.watcher.Start(ctx); err != nil {
			logging.Warn("File watcher unavailable, relying on polling: %v", err)
			idx.watcher = nil
		}
	}

	idx.wg.Add(2)
	go func() {
		defer idx.wg.Done()
		idx.pollForChanges(ctx)
	}()
	go func() {
		defer idx.wg.Done()
		idx.periodicSweep(ctx)
	}()
	return nil
}

// Stop stops background work and waits for it to finish.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		close(idx.stopChan)
		if idx.watcher != nil {
			if err := idx.watcher.Close(); err != nil {
				logging.Warn("Error closing file watcher: %v", err)
			}
		}
	})
	idx.wg.Wait()
}

// Reinitialize runs a sweep, or waits for the one already running and
// returns its result.
func (idx *Indexer) Reinitialize(ctx context.Context, trigger Trigger) (Result, error) {
	v, err, shared := idx.group.Do(sweepKey, func() (interface{}, error) {
		return idx.runSweep(ctx, trigger)
	})
	if shared {
		logging.Debug("Sweep request (%s) joined a running sweep", trigger)
	}
	res, _ := v.(Result)
	return res, err
}

// TriggerAsync starts a sweep in the background. It returns false when a
// sweep is already running, in which case no new sweep is started.
func (idx *Indexer) TriggerAsync(trigger Trigger) bool {
	if idx.IsSweeping() {
		logging.Debug("Sweep already in progress, ignoring %s trigger", trigger)
		return false
	}

	select {
	case <-idx.stopChan:
		return false
	default:
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-idx.stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		if _, err := idx.Reinitialize(ctx, trigger); err != nil {
			logging.Error("Sweep (%s) failed: %v", trigger, err)
		}
	}()
	return true
}

// IsSweeping reports whether a sweep is running.
func (idx *Indexer) IsSweeping() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.sweeping
}

// IsReady reports whether the initial sweep has finished.
func (idx *Indexer) IsReady() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.initialComplete
}

// LastSweep returns when the last sweep completed, or the zero time.
func (idx *Indexer) LastSweep() time.Time {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.lastSweep
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready               bool      `json:"ready"`
	Sweeping            bool      `json:"sweeping"`
	StartTime           time.Time `json:"startTime"`
	Uptime              string    `json:"uptime"`
	LastSweep           time.Time `json:"lastSweep,omitempty"`
	SweepStartedAt      time.Time `json:"sweepStartedAt,omitempty"`
	LastResult          *Result   `json:"lastResult,omitempty"`
	InitialSweepError   string    `json:"initialSweepError,omitempty"`
	PendingPropagations int       `json:"pendingPropagations"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	pending := len(idx.sync.Pending())

	idx.mu.Lock()
	defer idx.mu.Unlock()

	status := HealthStatus{
		Ready:               idx.initialComplete,
		Sweeping:            idx.sweeping,
		StartTime:           idx.startTime,
		Uptime:              time.Since(idx.startTime).Round(time.Second).String(),
		LastSweep:           idx.lastSweep,
		LastResult:          idx.lastResult,
		PendingPropagations: pending,
	}
	if idx.sweeping {
		status.SweepStartedAt = idx.sweepStarted
	}
	if idx.initialSweepError != nil {
		status.InitialSweepError = idx.initialSweepError.Error()
	}
	return status
}

// startSweeping marks a sweep as running. Callers run under the
// singleflight group, so at most one sweep is ever marked.
func (idx *Indexer) startSweeping() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.sweeping = true
	idx.sweepStarted = time.Now()
}

// finishSweeping clears the running flag. A completed sweep also marks the
// indexer ready.
func (idx *Indexer) finishSweeping(completed bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.sweeping = false
	if completed {
		idx.initialComplete = true
	}
}

// periodicSweep runs full sweeps on SweepInterval.
func (idx *Indexer) periodicSweep(ctx context.Context) {
	if idx.opts.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(idx.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := idx.Reinitialize(ctx, TriggerPeriodic); err != nil {
				logging.Error("Periodic sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		case <-idx.stopChan:
			return
		}
	}
}

// pollForChanges periodically checks for file changes and drains the
// deferred propagation queue.
func (idx *Indexer) pollForChanges(ctx context.Context) {
	// Wait for initial sweep to complete
	for !idx.IsReady() {
		select {
		case <-time.After(1 * time.Second):
		case <-ctx.Done():
			return
		case <-idx.stopChan:
			return
		}
	}

	logging.Info("Starting change detection polling (interval: %v)", idx.opts.PollInterval)

	ticker := time.NewTicker(idx.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			idx.pollOnce(ctx)
		case <-ctx.Done():
			return
		case <-idx.stopChan:
			logging.Info("Change detection polling stopped")
			return
		}
	}
}

func (idx *Indexer) pollOnce(ctx context.Context) {
	if len(idx.sync.Pending()) > 0 {
		if _, err := idx.sync.RetryPending(); err != nil {
			logging.Warn("Deferred root store updates still failing: %v", err)
		}
	}

	changed, err := idx.detectChanges()
	if err != nil {
		logging.Error("Error detecting changes: %v", err)
		return
	}
	if changed {
		logging.Info("File changes detected, triggering sweep")
		if _, err := idx.Reinitialize(ctx, TriggerPoll); err != nil {
			logging.Error("Sweep after change detection failed: %v", err)
		}
	}
}

// treeState digests the visible entry names of the root ("" key) and of each
// visible top-level subdirectory. Store files are hidden, so the stores'
// own rewrites never change it.
type treeState map[string]uint64

// detectChanges performs a lightweight check to detect if files have changed.
// It compares the visible names in the root and its top-level subdirectories
// with the last recorded state, avoiding a recursive walk.
func (idx *Indexer) detectChanges() (bool, error) {
	metrics.SweepPollChecksTotal.Inc()

	current, err := idx.readTreeState()
	if err != nil {
		return false, err
	}

	idx.stateMu.RLock()
	defer idx.stateMu.RUnlock()
	last := idx.lastState

	if len(current) != len(last) {
		logging.Debug("Top-level directory count changed: %d -> %d", len(last)-1, len(current)-1)
		metrics.SweepPollChangesDetected.Inc()
		return true, nil
	}
	for name, digest := range current {
		if prev, ok := last[name]; !ok || prev != digest {
			logging.Debug("Entries of %q changed", name)
			metrics.SweepPollChangesDetected.Inc()
			return true, nil
		}
	}
	return false, nil
}

// readTreeState reads the current state of the root and its top-level
// subdirectories. An unreadable subdirectory is left out.
func (idx *Indexer) readTreeState() (treeState, error) {
	entries, err := os.ReadDir(idx.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}
	state := treeState{"": digestEntries(entries)}
	for _, entry := range entries {
		if !entry.IsDir() || hidden.IsHiddenName(entry.Name()) {
			continue
		}
		if digest, err := idx.digestDir(entry.Name()); err == nil {
			state[entry.Name()] = digest
		}
	}
	return state, nil
}

func (idx *Indexer) digestDir(name string) (uint64, error) {
	entries, err := os.ReadDir(filepath.Join(idx.root, name))
	if err != nil {
		return 0, err
	}
	return digestEntries(entries), nil
}

// digestEntries hashes the visible names in entries. ReadDir returns them
// sorted, so the digest is stable.
func digestEntries(entries []fs.DirEntry) uint64 {
	h := xxh3.New()
	for _, entry := range entries {
		if hidden.IsHiddenName(entry.Name()) {
			continue
		}
		kind := "f:"
		if entry.IsDir() {
			kind = "d:"
		}
		_, _ = h.Write([]byte(kind + entry.Name() + "\x00"))
	}
	return h.Sum64()
}

// updateLastKnownState updates the cached state after a sweep.
func (idx *Indexer) updateLastKnownState() {
	state, err := idx.readTreeState()
	if err != nil {
		logging.Warn("Failed to read media directory for state update: %v", err)
		return
	}

	idx.stateMu.Lock()
	idx.lastState = state
	idx.stateMu.Unlock()

	logging.Debug("Updated last known state: %d top-level directories", len(state)-1)
}

// noteOwnChanges refreshes the recorded state of the top-level entries that
// a rename, delete or upload just touched, so the poller does not sweep for
// changes made through the stores.
func (idx *Indexer) noteOwnChanges(keys []string) {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	if idx.lastState == nil {
		return
	}

	refreshed := make(map[string]bool)
	for _, key := range keys {
		top, _, nested := strings.Cut(key, "/")
		if !nested {
			top = ""
		}
		if refreshed[top] {
			continue
		}
		refreshed[top] = true

		if top == "" {
			entries, err := os.ReadDir(idx.root)
			if err != nil {
				continue
			}
			idx.lastState[""] = digestEntries(entries)
			continue
		}
		if digest, err := idx.digestDir(top); err == nil {
			idx.lastState[top] = digest
		}
	}
}

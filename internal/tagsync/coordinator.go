package tagsync

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"visionvault/internal/hidden"
	"visionvault/internal/logging"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
)

// DefaultLockTimeout bounds how long a root store update waits for another
// process holding the root lock.
const DefaultLockTimeout = 30 * time.Second

// Change is one root store edit. Removed changes delete Key; others set it
// to Record.
type Change struct {
	Key     string
	Record  tagstore.Record
	Removed bool
}

// Upserted returns a Change that stores r under key.
func Upserted(key string, r tagstore.Record) Change {
	return Change{Key: key, Record: r.WithKey(key)}
}

// Removed returns a Change that deletes key.
func Removed(key string) Change {
	return Change{Key: key, Removed: true}
}

func (c Change) operation() string {
	if c.Removed {
		return "remove"
	}
	return "upsert"
}

// Options configures a Coordinator.
type Options struct {
	LockTimeout time.Duration
	Attribute   hidden.Attribute
}

// Coordinator serializes store mutations and mirrors directory store changes
// into the root store.
//
// Lock order is always directory lock, then root lock. Propagation to the
// root store happens after the directory store is committed; when it fails
// the affected keys are queued and later reconciled against the directory
// store, which stays authoritative.
type Coordinator struct {
	root        *tagstore.RootStore
	dirs        *tagstore.DirStore
	dirLocks    *keyedMutex
	rootMu      sync.Mutex
	fileLock    *flock.Flock
	lockTimeout time.Duration
	attr        hidden.Attribute
	hideOnce    sync.Once

	pendingMu sync.Mutex
	pending   map[string]struct{}
	touched   map[string]struct{} // non-nil while a sweep is running

	hookMu      sync.RWMutex
	onPropagate func(keys []string)
}

// New creates a Coordinator for the given stores.
func New(root *tagstore.RootStore, dirs *tagstore.DirStore, opts Options) *Coordinator {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Attribute == nil {
		opts.Attribute = hidden.OS()
	}
	return &Coordinator{
		root:        root,
		dirs:        dirs,
		dirLocks:    newKeyedMutex(),
		fileLock:    flock.New(root.Path() + ".lock"),
		lockTimeout: opts.LockTimeout,
		attr:        opts.Attribute,
		pending:     make(map[string]struct{}),
	}
}

// RootStore returns the root store.
func (c *Coordinator) RootStore() *tagstore.RootStore {
	return c.root
}

// DirStore returns the directory store.
func (c *Coordinator) DirStore() *tagstore.DirStore {
	return c.dirs
}

// LockDir acquires the in-process lock for dir and returns its release
// function. Every read-modify-write of a directory store runs under it.
func (c *Coordinator) LockDir(dir string) func() {
	return c.dirLocks.Lock(filepath.Clean(dir))
}

// lockRoot takes the in-process root mutex and the cross-process file lock.
func (c *Coordinator) lockRoot() (func(), error) {
	start := time.Now()
	c.rootMu.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), c.lockTimeout)
	defer cancel()

	locked, err := c.fileLock.TryLockContext(ctx, 25*time.Millisecond)
	metrics.SyncLockWait.WithLabelValues("root").Observe(time.Since(start).Seconds())
	if err != nil || !locked {
		c.rootMu.Unlock()
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, fmt.Errorf("failed to lock %s: %w", c.fileLock.Path(), err)
	}

	c.hideOnce.Do(func() {
		if err := c.attr.Hide(c.fileLock.Path()); err != nil {
			logging.Debug("Could not hide lock file %s: %v", c.fileLock.Path(), err)
		}
	})

	return func() {
		if err := c.fileLock.Unlock(); err != nil {
			logging.Warn("Failed to release %s: %v", c.fileLock.Path(), err)
		}
		c.rootMu.Unlock()
	}, nil
}

// Apply performs one read-modify-write of the root store.
func (c *Coordinator) Apply(changes ...Change) error {
	if len(changes) == 0 {
		return nil
	}

	unlock, err := c.lockRoot()
	if err != nil {
		return err
	}
	defer unlock()

	records, err := c.root.ReadAll()
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Removed {
			delete(records, ch.Key)
		} else {
			records[ch.Key] = ch.Record.WithKey(ch.Key)
		}
	}
	return c.root.WriteAll(records)
}

// Upsert sets key in the root store.
func (c *Coordinator) Upsert(key string, r tagstore.Record) error {
	return c.Apply(Upserted(key, r))
}

// UpsertMany sets every record in the root store in one write.
func (c *Coordinator) UpsertMany(records map[string]tagstore.Record) error {
	changes := make([]Change, 0, len(records))
	for key, r := range records {
		changes = append(changes, Upserted(key, r))
	}
	return c.Apply(changes...)
}

// Remove deletes key from the root store.
func (c *Coordinator) Remove(key string) error {
	return c.Apply(Removed(key))
}

// Propagate is the second phase of a mutation: the directory store has
// already been written, and the changes are now mirrored into the root
// store. Failure does not undo the first phase; the keys are queued for
// RetryPending and the error, wrapping ErrSyncDivergence, is returned for
// the caller to log or ignore.
func (c *Coordinator) Propagate(changes ...Change) error {
	c.noteTouched(changes)
	defer c.notifyPropagate(changes)

	err := c.Apply(changes...)
	for _, ch := range changes {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.SyncPropagationsTotal.WithLabelValues(ch.operation(), status).Inc()
	}
	if err == nil {
		return nil
	}

	metrics.SyncDivergences.Inc()
	keys := make([]string, 0, len(changes))
	for _, ch := range changes {
		keys = append(keys, ch.Key)
	}
	c.enqueue(keys...)
	logging.Warn("Root store update failed for %v, queued for retry: %v", keys, err)
	return fmt.Errorf("%w: %v", tagstore.ErrSyncDivergence, err)
}

// OnPropagate registers fn to be called after every Propagate, whether or
// not the root store update succeeded. A later call replaces fn.
func (c *Coordinator) OnPropagate(fn func(keys []string)) {
	c.hookMu.Lock()
	c.onPropagate = fn
	c.hookMu.Unlock()
}

func (c *Coordinator) notifyPropagate(changes []Change) {
	c.hookMu.RLock()
	fn := c.onPropagate
	c.hookMu.RUnlock()
	if fn == nil || len(changes) == 0 {
		return
	}
	keys := make([]string, len(changes))
	for i, ch := range changes {
		keys[i] = ch.Key
	}
	fn(keys)
}

func (c *Coordinator) noteTouched(changes []Change) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.touched == nil {
		return
	}
	for _, ch := range changes {
		c.touched[ch.Key] = struct{}{}
	}
}

func (c *Coordinator) enqueue(keys ...string) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for _, k := range keys {
		c.pending[k] = struct{}{}
	}
	metrics.SyncPending.Set(float64(len(c.pending)))
}

// Pending returns the keys waiting to be reconciled, sorted.
func (c *Coordinator) Pending() []string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RetryPending reconciles every queued key against its directory store and
// returns how many keys were repaired. Keys that fail again stay queued.
func (c *Coordinator) RetryPending() (int, error) {
	c.pendingMu.Lock()
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	c.pending = make(map[string]struct{})
	metrics.SyncPending.Set(0)
	c.pendingMu.Unlock()

	sort.Strings(keys)
	var errs []error
	repaired := 0
	for _, key := range keys {
		if err := c.reconcile(key); err != nil {
			c.enqueue(key)
			metrics.SyncPropagationsTotal.WithLabelValues("retry", "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		metrics.SyncPropagationsTotal.WithLabelValues("retry", "success").Inc()
		repaired++
	}

	if repaired > 0 {
		logging.Info("Reconciled %d root store entries", repaired)
	}
	return repaired, errors.Join(errs...)
}

// reconcile makes the root store entry for key match its directory store.
func (c *Coordinator) reconcile(key string) error {
	dir := filepath.Join(c.root.Root(), filepath.FromSlash(path.Dir(key)))
	name := path.Base(key)

	unlock := c.LockDir(dir)
	defer unlock()

	r, ok, err := c.dirs.Get(dir, name)
	if err != nil {
		return err
	}
	if !ok {
		return c.Apply(Removed(key))
	}
	return c.Apply(Upserted(key, r))
}

// BeginSweep starts recording keys propagated while a full sweep builds its
// replacement root store.
func (c *Coordinator) BeginSweep() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.touched = make(map[string]struct{})
}

// AbortSweep stops recording keys for a sweep that will not call Replace.
func (c *Coordinator) AbortSweep() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.touched = nil
}

// Replace writes records as the complete root store. Queued keys are
// superseded, except those propagated since BeginSweep, which may be newer
// than what the sweep read and are reconciled again afterwards.
func (c *Coordinator) Replace(records map[string]tagstore.Record) error {
	unlock, err := c.lockRoot()
	if err != nil {
		c.AbortSweep()
		metrics.SyncPropagationsTotal.WithLabelValues("replace", "error").Inc()
		return err
	}
	err = c.root.WriteAll(records)
	unlock()

	c.pendingMu.Lock()
	touched := c.touched
	c.touched = nil
	if err == nil {
		c.pending = make(map[string]struct{}, len(touched))
		for k := range touched {
			c.pending[k] = struct{}{}
		}
		metrics.SyncPending.Set(float64(len(c.pending)))
	}
	c.pendingMu.Unlock()

	if err != nil {
		metrics.SyncPropagationsTotal.WithLabelValues("replace", "error").Inc()
		return err
	}
	metrics.SyncPropagationsTotal.WithLabelValues("replace", "success").Inc()

	if len(touched) > 0 {
		if _, retryErr := c.RetryPending(); retryErr != nil {
			logging.Warn("Reconciling entries changed during sweep: %v", retryErr)
		}
	}
	return nil
}

// Close releases the lock file handle.
func (c *Coordinator) Close() error {
	return c.fileLock.Close()
}

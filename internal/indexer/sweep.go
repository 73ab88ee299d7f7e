package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
	"visionvault/internal/workers"
)

// maxSweepWorkers caps concurrent directory reconciliation.
const maxSweepWorkers = 16

// Result summarizes one sweep.
type Result struct {
	Trigger     Trigger       `json:"trigger"`
	Directories int           `json:"directories"`
	Records     int           `json:"records"`
	Created     int           `json:"created"`
	Pruned      int           `json:"pruned"`
	Preserved   int           `json:"preserved"`
	Errors      int           `json:"errors"`
	Duration    time.Duration `json:"duration"`
}

// dirResult is the outcome of reconciling one directory.
type dirResult struct {
	records map[string]tagstore.Record // keyed by root store key
	created int
	pruned  int
}

// sweep accumulates per-directory results.
type sweep struct {
	mu      sync.Mutex
	records map[string]tagstore.Record
	failed  []string // keys of directories that could not be reconciled
	result  Result
}

func (s *sweep) add(r dirResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range r.records {
		s.records[k] = v
	}
	s.result.Directories++
	s.result.Created += r.created
	s.result.Pruned += r.pruned
}

func (s *sweep) fail(key string) {
	s.mu.Lock()
	s.result.Errors++
	s.failed = append(s.failed, key)
	s.mu.Unlock()
	metrics.SweepErrors.Inc()
}

// preserve copies the previous root store entries under every failed
// directory into the sweep, so an unreadable subtree keeps its records
// until a later sweep can read it.
func (s *sweep) preserve(previous map[string]tagstore.Record) {
	for k, rec := range previous {
		if _, ok := s.records[k]; ok {
			continue
		}
		for _, dir := range s.failed {
			if strings.HasPrefix(k, dir+"/") {
				s.records[k] = rec
				s.result.Preserved++
				break
			}
		}
	}
}

// runSweep reconciles every directory store with the files on disk and
// replaces the root store with the union of all directory stores.
func (idx *Indexer) runSweep(ctx context.Context, trigger Trigger) (res Result, err error) {
	idx.startSweeping()
	completed := false
	defer func() { idx.finishSweeping(completed) }()

	metrics.SweepIsRunning.Set(1)
	defer metrics.SweepIsRunning.Set(0)

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.SweepRunsTotal.WithLabelValues(string(trigger), status).Inc()
	}()

	logging.Info("Starting sweep (%s) of %s", trigger, idx.root)

	idx.sync.BeginSweep()
	s := &sweep{records: make(map[string]tagstore.Record), result: Result{Trigger: trigger}}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForIO(maxSweepWorkers))

	rootErr := idx.sweepDir(gctx, g, s, idx.root, "")
	waitErr := g.Wait()

	switch {
	case rootErr != nil:
		err = rootErr
	case waitErr != nil:
		err = waitErr
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	if err != nil {
		idx.sync.AbortSweep()
		metrics.SweepErrors.Inc()
		return Result{}, fmt.Errorf("sweep aborted: %w", err)
	}

	if len(s.failed) > 0 {
		previous, readErr := idx.sync.RootStore().ReadAll()
		if readErr != nil {
			idx.sync.AbortSweep()
			return Result{}, fmt.Errorf("sweep aborted: reading root store to keep records of %d unreadable directories: %w",
				len(s.failed), readErr)
		}
		s.preserve(previous)
		logging.Warn("Kept %d root store records under %d unreadable directories", s.result.Preserved, len(s.failed))
	}

	if err = idx.sync.Replace(s.records); err != nil {
		return Result{}, fmt.Errorf("writing root store: %w", err)
	}

	res = s.result
	res.Records = len(s.records)
	res.Duration = time.Since(start)
	completed = true

	idx.mu.Lock()
	idx.lastSweep = time.Now()
	idx.lastResult = &res
	idx.mu.Unlock()
	idx.updateLastKnownState()

	metrics.SweepLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.SweepLastRunDuration.Set(res.Duration.Seconds())
	metrics.SweepDirectoriesProcessed.Add(float64(res.Directories))
	metrics.SweepRecordsCreated.Add(float64(res.Created))
	metrics.SweepRecordsPruned.Add(float64(res.Pruned))

	logging.Info("Sweep (%s) complete: %d directories, %d records, %d created, %d pruned, %d preserved, %d errors in %v",
		trigger, res.Directories, res.Records, res.Created, res.Pruned, res.Preserved, res.Errors, res.Duration)

	if idx.opts.OnSweepComplete != nil {
		idx.opts.OnSweepComplete(res)
	}
	return res, nil
}

// sweepDir reconciles dir and schedules its subdirectories. Subdirectories
// run on the errgroup when a worker is free and inline otherwise. Only a
// failure on the root itself is returned; other directories are logged,
// counted and remembered so their previous records survive the sweep.
func (idx *Indexer) sweepDir(ctx context.Context, g *errgroup.Group, s *sweep, dir, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	folders, r, err := idx.reconcileDir(dir, key)
	if err != nil {
		if key == "" {
			return err
		}
		logging.Warn("Skipping %s during sweep: %v", dir, err)
		s.fail(key)
		return nil
	}
	s.add(r)

	for _, name := range folders {
		childDir := filepath.Join(dir, name)
		childKey := tagstore.JoinKey(key, name)
		work := func() error {
			return idx.sweepDir(ctx, g, s, childDir, childKey)
		}
		if !g.TryGo(work) {
			if err := work(); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileDir brings one directory store in line with the files in dir.
// Files without a record, and files still waiting for a caption, get a fresh
// untagged record; records for files that are gone are dropped. The store is
// only written when something changed, so an unchanged tree is left
// byte-identical.
func (idx *Indexer) reconcileDir(dir, key string) (folders []string, r dirResult, err error) {
	unlock := idx.sync.LockDir(dir)
	defer unlock()

	dirEntries, files, err := idx.scanner.Children(dir)
	if err != nil {
		return nil, dirResult{}, err
	}
	existing, err := idx.dirs.ReadAll(dir)
	if err != nil {
		return nil, dirResult{}, err
	}

	next := make(map[string]tagstore.Record, len(files))
	for _, entry := range files {
		name := entry.Name()
		rec, ok := existing[name]
		if !ok || rec.Status == tagstore.StatusPending {
			rec = tagstore.Untagged(name, mediatypes.Classify(name))
			r.created++
		}
		next[name] = rec
	}
	for name := range existing {
		if _, ok := next[name]; !ok {
			logging.Debug("Pruning record for missing file %s", tagstore.JoinKey(key, name))
			r.pruned++
		}
	}

	if r.created > 0 || r.pruned > 0 {
		if err := idx.dirs.WriteAll(dir, next); err != nil {
			return nil, dirResult{}, err
		}
	}

	r.records = make(map[string]tagstore.Record, len(next))
	for name, rec := range next {
		k := tagstore.JoinKey(key, name)
		r.records[k] = rec.WithKey(k)
	}

	for _, entry := range dirEntries {
		folders = append(folders, entry.Name())
	}
	return folders, r, nil
}

package tagsync

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"visionvault/internal/hidden"
	"visionvault/internal/tagstore"
)

type fixture struct {
	root  string
	dirs  *tagstore.DirStore
	roots *tagstore.RootStore
	c     *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	attr := hidden.NewMemory()
	opts := tagstore.Options{Attribute: attr}

	dirs, err := tagstore.NewDirStore(opts)
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	roots, err := tagstore.NewRootStore(root, opts)
	if err != nil {
		t.Fatalf("NewRootStore() error = %v", err)
	}
	c := New(roots, dirs, Options{Attribute: attr, LockTimeout: time.Second})
	t.Cleanup(func() { _ = c.Close() })

	return &fixture{root: roots.Root(), dirs: dirs, roots: roots, c: c}
}

func (f *fixture) rootRecords(t *testing.T) map[string]tagstore.Record {
	t.Helper()
	records, err := f.roots.ReadAll()
	if err != nil {
		t.Fatalf("root ReadAll() error = %v", err)
	}
	return records
}

func tagged(key, tags string) tagstore.Record {
	return tagstore.Record{Key: key, Format: "image", Status: tagstore.StatusTagged, Tags: tags}
}

// breakRootStore replaces the root store file with a directory so reads fail.
func (f *fixture) breakRootStore(t *testing.T) func() {
	t.Helper()
	if err := os.Remove(f.roots.Path()); err != nil && !os.IsNotExist(err) {
		t.Fatalf("Remove: %v", err)
	}
	if err := os.Mkdir(f.roots.Path(), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	return func() {
		if err := os.Remove(f.roots.Path()); err != nil {
			t.Fatalf("Remove: %v", err)
		}
	}
}

func TestUpsertAndRemove(t *testing.T) {
	f := newFixture(t)

	if err := f.c.Upsert("sub/a.jpg", tagged("a.jpg", "cat")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := f.c.UpsertMany(map[string]tagstore.Record{
		"b.jpg":     tagged("b.jpg", "dog"),
		"sub/c.jpg": tagged("c.jpg", "bird"),
	}); err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}

	got := f.rootRecords(t)
	if len(got) != 3 {
		t.Fatalf("root store has %d records, want 3", len(got))
	}
	if got["sub/a.jpg"].Key != "sub/a.jpg" || got["sub/a.jpg"].Tags != "cat" {
		t.Errorf("sub/a.jpg = %+v", got["sub/a.jpg"])
	}

	if err := f.c.Remove("sub/a.jpg"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := f.c.Remove("never/existed.jpg"); err != nil {
		t.Fatalf("Remove() of absent key error = %v", err)
	}
	if _, ok := f.rootRecords(t)["sub/a.jpg"]; ok {
		t.Error("sub/a.jpg still present after Remove")
	}
}

func TestPropagateFailureQueuesAndRetries(t *testing.T) {
	f := newFixture(t)
	sub := filepath.Join(f.root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	// First phase succeeds.
	if err := f.dirs.WriteAll(sub, map[string]tagstore.Record{"a.jpg": tagged("a.jpg", "cat")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	restore := f.breakRootStore(t)
	err := f.c.Propagate(Upserted("sub/a.jpg", tagged("a.jpg", "cat")), Removed("sub/gone.jpg"))
	if !errors.Is(err, tagstore.ErrSyncDivergence) {
		t.Fatalf("Propagate() error = %v, want ErrSyncDivergence", err)
	}
	if got, want := f.c.Pending(), []string{"sub/a.jpg", "sub/gone.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Pending() = %v, want %v", got, want)
	}

	// Retry while still broken keeps the keys queued.
	if n, err := f.c.RetryPending(); err == nil || n != 0 {
		t.Errorf("RetryPending() = %d, %v; want 0 and an error", n, err)
	}
	if len(f.c.Pending()) != 2 {
		t.Errorf("Pending() = %v, want both keys still queued", f.c.Pending())
	}

	restore()

	// The directory store changed again before the retry; the retry must
	// mirror the current directory store, not the queued value.
	if err := f.dirs.WriteAll(sub, map[string]tagstore.Record{"a.jpg": tagged("a.jpg", "cat, newer")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	n, err := f.c.RetryPending()
	if err != nil {
		t.Fatalf("RetryPending() error = %v", err)
	}
	if n != 2 {
		t.Errorf("RetryPending() repaired %d, want 2", n)
	}
	if len(f.c.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty", f.c.Pending())
	}

	got := f.rootRecords(t)
	if got["sub/a.jpg"].Tags != "cat, newer" {
		t.Errorf("root sub/a.jpg tags = %q, want %q", got["sub/a.jpg"].Tags, "cat, newer")
	}
	if _, ok := got["sub/gone.jpg"]; ok {
		t.Error("sub/gone.jpg should not be in the root store")
	}
}

func TestOnPropagateSeesEveryPropagation(t *testing.T) {
	f := newFixture(t)
	var got [][]string
	f.c.OnPropagate(func(keys []string) { got = append(got, keys) })

	if err := f.c.Propagate(Upserted("a.jpg", tagged("a.jpg", "x")), Removed("b.jpg")); err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}
	restore := f.breakRootStore(t)
	if err := f.c.Propagate(Upserted("c.jpg", tagged("c.jpg", "y"))); err == nil {
		t.Fatal("Propagate() with a broken root store succeeded")
	}
	restore()
	// Direct root store writes are not propagations.
	if err := f.c.Upsert("d.jpg", tagged("d.jpg", "z")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	want := [][]string{{"a.jpg", "b.jpg"}, {"c.jpg"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hook calls = %v, want %v", got, want)
	}
}

func TestReplaceSupersedesQueue(t *testing.T) {
	f := newFixture(t)

	restore := f.breakRootStore(t)
	_ = f.c.Propagate(Upserted("x.jpg", tagged("x.jpg", "old")))
	restore()

	if len(f.c.Pending()) != 1 {
		t.Fatalf("Pending() = %v, want one key", f.c.Pending())
	}

	replacement := map[string]tagstore.Record{"y.jpg": tagged("y.jpg", "fresh")}
	if err := f.c.Replace(replacement); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if len(f.c.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty after Replace", f.c.Pending())
	}
	got := f.rootRecords(t)
	if len(got) != 1 || got["y.jpg"].Tags != "fresh" {
		t.Errorf("root store = %+v, want only y.jpg", got)
	}
}

func TestReplaceReconcilesKeysTouchedDuringSweep(t *testing.T) {
	f := newFixture(t)

	f.c.BeginSweep()

	// A mutation lands after the sweep read the root directory.
	if err := f.dirs.WriteAll(f.root, map[string]tagstore.Record{"late.jpg": tagged("late.jpg", "late")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := f.c.Propagate(Upserted("late.jpg", tagged("late.jpg", "late"))); err != nil {
		t.Fatalf("Propagate() error = %v", err)
	}

	// The sweep's snapshot predates the mutation.
	if err := f.c.Replace(map[string]tagstore.Record{}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if got := f.rootRecords(t)["late.jpg"]; got.Tags != "late" {
		t.Errorf("late.jpg = %+v, want it restored after Replace", got)
	}
}

func TestRootLockExcludesOtherInstances(t *testing.T) {
	f := newFixture(t)

	other := New(f.roots, f.dirs, Options{Attribute: hidden.NewMemory(), LockTimeout: 100 * time.Millisecond})
	defer other.Close()

	unlock, err := f.c.lockRoot()
	if err != nil {
		t.Fatalf("lockRoot() error = %v", err)
	}

	if err := other.Upsert("a.jpg", tagged("a.jpg", "x")); err == nil {
		t.Error("Upsert() should time out while another instance holds the root lock")
	}

	unlock()

	if err := other.Upsert("a.jpg", tagged("a.jpg", "x")); err != nil {
		t.Errorf("Upsert() after unlock error = %v", err)
	}
}

func TestConcurrentUpsertsAreNotLost(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := filepath.ToSlash(filepath.Join("d", string(rune('a'+i))+".jpg"))
			if err := f.c.Upsert(key, tagged(key, "t")); err != nil {
				t.Errorf("Upsert(%s) error = %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(f.rootRecords(t)); got != 20 {
		t.Errorf("root store has %d records, want 20", got)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	unlockB := k.Lock("b")
	unlockB()

	select {
	case <-acquired:
		t.Fatal("second Lock(a) should block while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock(a) did not acquire after unlock")
	}

	// Let the goroutine release.
	time.Sleep(10 * time.Millisecond)
	if n := k.size(); n != 0 {
		t.Errorf("size() = %d, want 0 after all unlocks", n)
	}
}

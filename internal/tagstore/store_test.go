package tagstore

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"visionvault/internal/filesystem"
	"visionvault/internal/hidden"
)

func testOptions(attr hidden.Attribute) Options {
	retry := filesystem.RetryConfig{MaxRetries: 0}
	return Options{Attribute: attr, Retry: &retry, CacheSize: 8}
}

func newTestDirStore(t *testing.T, attr hidden.Attribute) *DirStore {
	t.Helper()
	s, err := NewDirStore(testOptions(attr))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	return s
}

func TestDirStore_ReadMissingIsEmpty(t *testing.T) {
	s := newTestDirStore(t, hidden.NewMemory())

	got, err := s.ReadAll(t.TempDir())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadAll() = %v, want empty", got)
	}
}

func TestDirStore_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	attr := hidden.NewMemory()
	s := newTestDirStore(t, attr)

	records := map[string]Record{
		"a.jpg":     {Key: "a.jpg", Format: "image", Status: StatusTagged, Tags: "cat", Description: "ratio 4:3"},
		"notes.txt": Untagged("notes.txt", "txt"),
	}
	if err := s.WriteAll(dir, records); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	if h, _ := attr.IsHidden(s.Path(dir)); !h {
		t.Error("store file should be hidden after write")
	}

	data, err := os.ReadFile(s.Path(dir))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "a.jpg:image:cat:ratio 4\\:3\nnotes.txt:txt:untagged:No description available\n"
	if string(data) != want {
		t.Errorf("store contents = %q, want %q", data, want)
	}

	got, err := s.ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 2 || got["a.jpg"] != records["a.jpg"] {
		t.Errorf("ReadAll() = %+v", got)
	}
	if h, _ := attr.IsHidden(s.Path(dir)); !h {
		t.Error("store file should stay hidden after read")
	}
}

func TestDirStore_ReturnedMapIsPrivate(t *testing.T) {
	dir := t.TempDir()
	s := newTestDirStore(t, hidden.NewMemory())
	if err := s.WriteAll(dir, map[string]Record{"a.jpg": Untagged("a.jpg", "image")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	first, _ := s.ReadAll(dir)
	delete(first, "a.jpg")

	second, _ := s.ReadAll(dir)
	if _, ok := second["a.jpg"]; !ok {
		t.Error("mutating a returned map must not affect the cache")
	}
}

func TestDirStore_SeesExternalChanges(t *testing.T) {
	dir := t.TempDir()
	s := newTestDirStore(t, hidden.NewMemory())
	if err := s.WriteAll(dir, map[string]Record{"a.jpg": Untagged("a.jpg", "image")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if _, err := s.ReadAll(dir); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	content := "a.jpg:image:edited elsewhere:\nb.jpg:image:untagged:\n"
	if err := os.WriteFile(s.Path(dir), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(s.Path(dir), future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	got, err := s.ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got["a.jpg"].Tags != "edited elsewhere" || len(got) != 2 {
		t.Errorf("ReadAll() = %+v, want externally written records", got)
	}
}

func TestDirStore_WriteEmptyRemovesFile(t *testing.T) {
	dir := t.TempDir()
	s := newTestDirStore(t, hidden.NewMemory())
	if err := s.WriteAll(dir, map[string]Record{"a.jpg": Untagged("a.jpg", "image")}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	if err := s.WriteAll(dir, map[string]Record{}); err != nil {
		t.Fatalf("WriteAll(empty) error = %v", err)
	}
	if _, err := os.Stat(s.Path(dir)); !os.IsNotExist(err) {
		t.Errorf("store file should be removed, stat err = %v", err)
	}

	// Removing an already absent store is not an error.
	if err := s.WriteAll(dir, nil); err != nil {
		t.Errorf("WriteAll(nil) on missing store error = %v", err)
	}
}

func TestDirStore_HiddenFailureDoesNotFailWrite(t *testing.T) {
	dir := t.TempDir()
	attr := hidden.NewMemory()
	attr.FailHide = errors.New("attribute not supported")
	s := newTestDirStore(t, attr)

	if err := s.WriteAll(dir, map[string]Record{"a.jpg": Untagged("a.jpg", "image")}); err != nil {
		t.Fatalf("WriteAll() error = %v, want nil", err)
	}
	got, err := s.ReadAll(dir)
	if err != nil || len(got) != 1 {
		t.Errorf("ReadAll() = %v, %v", got, err)
	}
}

func TestDirStore_ReadPermissionError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	dir := t.TempDir()
	s := newTestDirStore(t, hidden.NewMemory())
	if err := os.WriteFile(s.Path(dir), []byte("a.jpg:image:x:y\n"), 0o000); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := s.ReadAll(dir)
	if !errors.Is(err, ErrPermission) {
		t.Errorf("ReadAll() error = %v, want ErrPermission", err)
	}
	if got := s.ReadOrEmpty(dir); len(got) != 0 {
		t.Errorf("ReadOrEmpty() = %v, want empty", got)
	}
}

func TestDirStore_Get(t *testing.T) {
	dir := t.TempDir()
	s := newTestDirStore(t, hidden.NewMemory())
	_ = s.WriteAll(dir, map[string]Record{"a.jpg": Untagged("a.jpg", "image")})

	if _, ok, err := s.Get(dir, "a.jpg"); !ok || err != nil {
		t.Errorf("Get(a.jpg) ok=%v err=%v", ok, err)
	}
	if _, ok, _ := s.Get(dir, "b.jpg"); ok {
		t.Error("Get(b.jpg) should report missing")
	}
}

func TestRootStore_WriteEmptyKeepsFile(t *testing.T) {
	root := t.TempDir()
	s, err := NewRootStore(root, testOptions(hidden.NewMemory()))
	if err != nil {
		t.Fatalf("NewRootStore() error = %v", err)
	}

	if err := s.WriteAll(nil); err != nil {
		t.Fatalf("WriteAll(nil) error = %v", err)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("root store should exist: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("root store size = %d, want 0", info.Size())
	}
	if s.Path() != filepath.Join(s.Root(), DefaultRootFileName) {
		t.Errorf("Path() = %s", s.Path())
	}
}

func TestRootStore_NestedKeys(t *testing.T) {
	root := t.TempDir()
	s, err := NewRootStore(root, testOptions(hidden.NewMemory()))
	if err != nil {
		t.Fatalf("NewRootStore() error = %v", err)
	}

	records := map[string]Record{
		"sub/photo.jpg": {Key: "sub/photo.jpg", Format: "image", Status: StatusTagged, Tags: "cat, beach"},
		"top.png":       Untagged("top.png", "image"),
	}
	if err := s.WriteAll(records); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	got, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got["sub/photo.jpg"].Tags != "cat, beach" {
		t.Errorf("ReadAll() = %+v", got)
	}
}

func TestRelKeyAndJoinKey(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "media")

	key, err := RelKey(root, filepath.Join(root, "sub", "photo.jpg"))
	if err != nil || key != "sub/photo.jpg" {
		t.Errorf("RelKey() = %q, %v", key, err)
	}

	if _, err := RelKey(root, filepath.Join(string(filepath.Separator), "etc", "passwd")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("RelKey(outside) error = %v, want ErrInvalidName", err)
	}

	if got := JoinKey(".", "a.jpg"); got != "a.jpg" {
		t.Errorf("JoinKey(., a.jpg) = %q", got)
	}
	if got := JoinKey("sub/deeper", "a.jpg"); got != "sub/deeper/a.jpg" {
		t.Errorf("JoinKey() = %q", got)
	}
}

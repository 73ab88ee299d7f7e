package media

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"visionvault/internal/hidden"
	"visionvault/internal/tagstore"
)

func newTestScanner(t *testing.T, root string) (*Scanner, *tagstore.DirStore, *hidden.Memory) {
	t.Helper()
	attr := hidden.NewMemory()
	dirs, err := tagstore.NewDirStore(tagstore.Options{Attribute: attr})
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	return NewScanner(root, dirs, attr), dirs, attr
}

func mkfile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
}

func names(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestListChildren_Order(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "b.png"))
	mkfile(t, filepath.Join(root, "a.txt"))
	mkdir(t, filepath.Join(root, "Folder1"))
	mkdir(t, filepath.Join(root, "folder2"))

	s, _, _ := newTestScanner(t, root)
	items, err := s.ListChildren(root)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}

	want := []string{"Folder1", "folder2", "a.txt", "b.png"}
	if got := names(items); !reflect.DeepEqual(got, want) {
		t.Errorf("ListChildren() order = %v, want %v", got, want)
	}
}

func TestListChildren_ItemFields(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	mkfile(t, filepath.Join(sub, "photo.JPG"))
	mkfile(t, filepath.Join(sub, "clip.mp4"))
	mkfile(t, filepath.Join(sub, "README"))
	mkdir(t, filepath.Join(sub, "inner"))

	s, dirs, _ := newTestScanner(t, root)
	err := dirs.WriteAll(sub, map[string]tagstore.Record{
		"photo.JPG": {Key: "photo.JPG", Format: "image", Status: tagstore.StatusTagged, Tags: "cat, beach", Description: "A cat"},
	})
	if err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}

	items, err := s.ListChildren(sub)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}

	byName := make(map[string]Item)
	for _, item := range items {
		byName[item.Name] = item
	}

	if len(items) != 4 {
		t.Fatalf("ListChildren() returned %v, want 4 items (store file hidden)", names(items))
	}

	folder := byName["inner"]
	if !folder.IsFolder() || folder.Path != "sub/inner" || folder.Tags != "" {
		t.Errorf("folder item = %+v", folder)
	}

	photo := byName["photo.JPG"]
	if photo.Type != "image" || photo.Tags != "cat, beach" || photo.Description != "A cat" || photo.Path != "sub/photo.JPG" {
		t.Errorf("photo item = %+v", photo)
	}
	if photo.MimeType != "image/jpeg" {
		t.Errorf("photo MimeType = %q", photo.MimeType)
	}

	clip := byName["clip.mp4"]
	if clip.Type != "mp4" || clip.Status != tagstore.StatusUntagged || clip.Description != "" {
		t.Errorf("clip item = %+v", clip)
	}

	if byName["README"].Type != "unknown" {
		t.Errorf("README type = %q, want unknown", byName["README"].Type)
	}
}

func TestListChildren_SkipsHidden(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, ".secret"))
	mkfile(t, filepath.Join(root, "flagged.jpg"))
	mkfile(t, filepath.Join(root, "visible.jpg"))
	mkdir(t, filepath.Join(root, ".git"))

	s, _, attr := newTestScanner(t, root)
	if err := attr.Hide(filepath.Join(root, "flagged.jpg")); err != nil {
		t.Fatalf("Hide: %v", err)
	}

	items, err := s.ListChildren(root)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if got := names(items); !reflect.DeepEqual(got, []string{"visible.jpg"}) {
		t.Errorf("ListChildren() = %v, want [visible.jpg]", got)
	}
}

func TestListChildren_MissingDirectory(t *testing.T) {
	root := t.TempDir()
	s, _, _ := newTestScanner(t, root)

	_, err := s.ListChildren(filepath.Join(root, "nope"))
	if !errors.Is(err, tagstore.ErrNotFound) {
		t.Errorf("ListChildren() error = %v, want ErrNotFound", err)
	}
}

func TestGetDirectory(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "a", "b", "c.png"))

	s, _, _ := newTestScanner(t, root)
	listing, err := s.GetDirectory("a/b")
	if err != nil {
		t.Fatalf("GetDirectory() error = %v", err)
	}

	if listing.Path != "a/b" || listing.Name != "b" || listing.Parent != "a" {
		t.Errorf("listing = %+v", listing)
	}
	wantCrumbs := []PathPart{{"Media", ""}, {"a", "a"}, {"b", "a/b"}}
	if !reflect.DeepEqual(listing.Breadcrumbs, wantCrumbs) {
		t.Errorf("Breadcrumbs = %v, want %v", listing.Breadcrumbs, wantCrumbs)
	}
	if len(listing.Items) != 1 || listing.Items[0].Path != "a/b/c.png" {
		t.Errorf("Items = %+v", listing.Items)
	}

	rootListing, err := s.GetDirectory("")
	if err != nil {
		t.Fatalf("GetDirectory(root) error = %v", err)
	}
	if rootListing.Name != "Media" || rootListing.Parent != "" {
		t.Errorf("root listing = %+v", rootListing)
	}
}

func TestGetDirectory_Errors(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "file.txt"))
	s, _, _ := newTestScanner(t, root)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", "missing", tagstore.ErrNotFound},
		{"escape", "../etc", tagstore.ErrInvalidName},
		{"file", "file.txt", tagstore.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.GetDirectory(tt.path); !errors.Is(err, tt.want) {
				t.Errorf("GetDirectory(%q) error = %v, want %v", tt.path, err, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "media")

	tests := []struct {
		in      string
		wantKey string
		wantErr bool
	}{
		{"", "", false},
		{"/", "", false},
		{"sub/photo.jpg", "sub/photo.jpg", false},
		{"/sub//deep/./x.png", "sub/deep/x.png", false},
		{"../outside", "", true},
		{"sub/../../outside", "", true},
		{`sub\..\..\x`, "", true},
	}

	for _, tt := range tests {
		abs, key, err := Resolve(root, tt.in)
		if tt.wantErr {
			if !errors.Is(err, tagstore.ErrInvalidName) {
				t.Errorf("Resolve(%q) error = %v, want ErrInvalidName", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", tt.in, err)
			continue
		}
		if key != tt.wantKey {
			t.Errorf("Resolve(%q) key = %q, want %q", tt.in, key, tt.wantKey)
		}
		if want := filepath.Join(root, filepath.FromSlash(tt.wantKey)); abs != want {
			t.Errorf("Resolve(%q) abs = %q, want %q", tt.in, abs, want)
		}
	}
}

func TestBuildTree(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "b", "inner"))
	mkdir(t, filepath.Join(root, "A"))
	mkdir(t, filepath.Join(root, ".hidden"))
	mkfile(t, filepath.Join(root, "file.jpg"))

	s, _, _ := newTestScanner(t, root)
	tree := s.BuildTree()

	if tree.Name != "Media" || tree.Path != "" {
		t.Errorf("root node = %+v", tree)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(tree.Children))
	}
	if tree.Children[0].Name != "A" || tree.Children[1].Name != "b" {
		t.Errorf("children order = %s, %s", tree.Children[0].Name, tree.Children[1].Name)
	}
	inner := tree.Children[1].Children
	if len(inner) != 1 || inner[0].Path != "b/inner" {
		t.Errorf("b children = %+v", inner)
	}
}

func TestBuildTree_UnreadableSubtree(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	mkdir(t, filepath.Join(locked, "child"))
	mkdir(t, filepath.Join(root, "open", "child"))
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s, _, _ := newTestScanner(t, root)
	tree := s.BuildTree()

	if len(tree.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(tree.Children))
	}
	if tree.Children[0].Error == "" {
		t.Error("locked folder should carry an error")
	}
	if len(tree.Children[1].Children) != 1 {
		t.Error("walk should continue past the unreadable folder")
	}
}

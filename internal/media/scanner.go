package media

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"visionvault/internal/filesystem"
	"visionvault/internal/hidden"
	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
)

// FolderType is the Item.Type of directories.
const FolderType = mediatypes.Folder

const rootName = "Media"

// Scanner lists directories under the media root and joins each file with
// its directory store record.
type Scanner struct {
	root  string
	dirs  *tagstore.DirStore
	attr  hidden.Attribute
	retry filesystem.RetryConfig
}

// NewScanner creates a Scanner for the tree at root.
func NewScanner(root string, dirs *tagstore.DirStore, attr hidden.Attribute) *Scanner {
	if attr == nil {
		attr = hidden.OS()
	}
	return &Scanner{
		root:  root,
		dirs:  dirs,
		attr:  attr,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// Root returns the media root.
func (s *Scanner) Root() string {
	return s.root
}

// Resolve maps a slash-separated request path onto the media root. It
// returns the absolute path and the root store key ("" for the root itself).
// Paths containing ".." segments are rejected.
func Resolve(root, requestPath string) (abs, key string, err error) {
	requestPath = strings.ReplaceAll(requestPath, `\`, "/")
	for _, seg := range strings.Split(requestPath, "/") {
		if seg == ".." {
			return "", "", fmt.Errorf("%w: %q escapes the media root", tagstore.ErrInvalidName, requestPath)
		}
	}

	key = strings.TrimPrefix(path.Clean("/"+requestPath), "/")
	if key == "" {
		return root, "", nil
	}
	return filepath.Join(root, filepath.FromSlash(key)), key, nil
}

// isHidden reports whether a directory entry should be left out of listings
// and sweeps.
func (s *Scanner) isHidden(dir string, entry fs.DirEntry) bool {
	if hidden.IsHiddenName(entry.Name()) {
		return true
	}
	h, err := s.attr.IsHidden(filepath.Join(dir, entry.Name()))
	return err == nil && h
}

// Children returns the visible entries of dir split into subdirectories and
// files, each sorted case-insensitively.
func (s *Scanner) Children(dir string) (folders, files []fs.DirEntry, err error) {
	entries, err := filesystem.ReadDirWithRetry(dir, s.retry)
	if err != nil {
		return nil, nil, tagstore.WrapPath("readdir", dir, err)
	}

	for _, entry := range entries {
		if s.isHidden(dir, entry) {
			continue
		}
		if entry.IsDir() {
			folders = append(folders, entry)
		} else if entry.Type().IsRegular() || entry.Type()&fs.ModeSymlink != 0 {
			files = append(files, entry)
		}
	}

	sortEntries(folders)
	sortEntries(files)
	return folders, files, nil
}

// ListChildren returns the folders and files directly inside dir, folders
// first and each group ordered by name ignoring case. Files without a record
// are reported as untagged.
func (s *Scanner) ListChildren(dir string) (items []Item, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ScannerOperationsTotal.WithLabelValues("list_children", status).Inc()
		metrics.ScannerOperationDuration.WithLabelValues("list_children").Observe(time.Since(start).Seconds())
	}()

	folders, files, err := s.Children(dir)
	if err != nil {
		return nil, err
	}

	dirKey, err := tagstore.RelKey(s.root, dir)
	if err != nil {
		return nil, err
	}
	records := s.dirs.ReadOrEmpty(dir)

	items = make([]Item, 0, len(folders)+len(files))
	for _, entry := range folders {
		item := Item{
			Name: entry.Name(),
			Path: tagstore.JoinKey(dirKey, entry.Name()),
			Type: FolderType,
		}
		if info, infoErr := entry.Info(); infoErr == nil {
			item.ModTime = info.ModTime()
		}
		items = append(items, item)
	}

	for _, entry := range files {
		info, infoErr := entry.Info()
		if infoErr != nil {
			// Removed between ReadDir and Info.
			continue
		}
		item := Item{
			Name:     entry.Name(),
			Path:     tagstore.JoinKey(dirKey, entry.Name()),
			Type:     mediatypes.Classify(entry.Name()),
			Status:   tagstore.StatusUntagged,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			MimeType: mediatypes.GetMimeType(entry.Name()),
		}
		if r, ok := records[entry.Name()]; ok {
			item.Status = r.Status
			item.Tags = r.Tags
			item.Description = r.Description
		}
		items = append(items, item)
	}

	metrics.ScannerItemsReturned.WithLabelValues("list_children").Observe(float64(len(items)))
	return items, nil
}

// GetDirectory returns the listing for a request path relative to the root.
func (s *Scanner) GetDirectory(requestPath string) (*Listing, error) {
	abs, key, err := Resolve(s.root, requestPath)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(abs, s.retry)
	if err != nil {
		return nil, tagstore.WrapPath("stat", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", tagstore.ErrInvalidName, key)
	}

	items, err := s.ListChildren(abs)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Path:        key,
		Name:        rootName,
		Breadcrumbs: Breadcrumbs(key),
		Items:       items,
	}
	if key != "" {
		listing.Name = path.Base(key)
		if parent := path.Dir(key); parent != "." {
			listing.Parent = parent
		}
	}
	return listing, nil
}

// Breadcrumbs returns the path components of key, starting at the root.
func Breadcrumbs(key string) []PathPart {
	crumbs := []PathPart{{Name: rootName, Path: ""}}
	current := ""
	for _, part := range strings.Split(key, "/") {
		if part == "" {
			continue
		}
		current = tagstore.JoinKey(current, part)
		crumbs = append(crumbs, PathPart{Name: part, Path: current})
	}
	return crumbs
}

// BuildTree returns the folder hierarchy under the root. Unreadable folders
// are reported on their node and do not stop the walk.
func (s *Scanner) BuildTree() *TreeNode {
	start := time.Now()
	node := s.buildNode(s.root, "", rootName)
	metrics.ScannerOperationsTotal.WithLabelValues("build_tree", "success").Inc()
	metrics.ScannerOperationDuration.WithLabelValues("build_tree").Observe(time.Since(start).Seconds())
	return node
}

func (s *Scanner) buildNode(dir, key, name string) *TreeNode {
	node := &TreeNode{Name: name, Path: key, Children: []*TreeNode{}}

	folders, _, err := s.Children(dir)
	if err != nil {
		logging.Warn("Failed to scan %s: %v", dir, err)
		node.Error = err.Error()
		return node
	}

	for _, entry := range folders {
		childKey := tagstore.JoinKey(key, entry.Name())
		node.Children = append(node.Children, s.buildNode(filepath.Join(dir, entry.Name()), childKey, entry.Name()))
	}
	return node
}

// Exists reports whether abs is present, following the retry policy.
func (s *Scanner) Exists(abs string) (bool, error) {
	_, err := filesystem.StatWithRetry(abs, s.retry)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func sortEntries(entries []fs.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name()), strings.ToLower(entries[j].Name())
		if a != b {
			return a < b
		}
		return entries[i].Name() < entries[j].Name()
	})
}

package tagstore

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"visionvault/internal/filesystem"
	"visionvault/internal/hidden"
	"visionvault/internal/logging"
)

// Default store file names.
const (
	DefaultDirFileName  = ".tags"
	DefaultRootFileName = ".tags_index"
	DefaultCacheSize    = 256
)

// Options configures the stores. Zero values select the defaults.
type Options struct {
	DirFileName  string
	RootFileName string
	CacheSize    int
	Attribute    hidden.Attribute
	Retry        *filesystem.RetryConfig
}

func (o Options) withDefaults() Options {
	if o.DirFileName == "" {
		o.DirFileName = DefaultDirFileName
	}
	if o.RootFileName == "" {
		o.RootFileName = DefaultRootFileName
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Attribute == nil {
		o.Attribute = hidden.OS()
	}
	if o.Retry == nil {
		cfg := filesystem.DefaultRetryConfig()
		o.Retry = &cfg
	}
	return o
}

// DirStore reads and writes the per-directory store files.
type DirStore struct {
	fileName string
	file     *storeFile
}

// NewDirStore creates a DirStore.
func NewDirStore(opts Options) (*DirStore, error) {
	opts = opts.withDefaults()
	f, err := newStoreFile("directory", opts.Attribute, *opts.Retry, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory store cache: %w", err)
	}
	return &DirStore{fileName: opts.DirFileName, file: f}, nil
}

// FileName returns the base name of directory store files.
func (s *DirStore) FileName() string {
	return s.fileName
}

// Path returns the store file path for dir.
func (s *DirStore) Path(dir string) string {
	return filepath.Join(dir, s.fileName)
}

// ReadAll returns the records of dir keyed by filename. A directory without a
// store yields an empty map. The returned map is owned by the caller.
func (s *DirStore) ReadAll(dir string) (map[string]Record, error) {
	return s.file.read(s.Path(dir))
}

// ReadOrEmpty is ReadAll for callers that can proceed without metadata; read
// failures are logged and an empty map is returned.
func (s *DirStore) ReadOrEmpty(dir string) map[string]Record {
	records, err := s.ReadAll(dir)
	if err != nil {
		logging.Warn("Failed to read tag store for %s: %v", dir, err)
		return make(map[string]Record)
	}
	return records
}

// WriteAll replaces the store of dir. Writing an empty set deletes the
// store file.
func (s *DirStore) WriteAll(dir string, records map[string]Record) error {
	return s.file.write(s.Path(dir), records, true)
}

// Get returns the record for key in dir.
func (s *DirStore) Get(dir, key string) (Record, bool, error) {
	records, err := s.ReadAll(dir)
	if err != nil {
		return Record{}, false, err
	}
	r, ok := records[key]
	return r, ok, nil
}

// RootStore reads and writes the aggregate store at the media root.
type RootStore struct {
	root     string
	fileName string
	file     *storeFile
}

// NewRootStore creates the RootStore for the tree at root.
func NewRootStore(root string, opts Options) (*RootStore, error) {
	opts = opts.withDefaults()
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}
	f, err := newStoreFile("root", opts.Attribute, *opts.Retry, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create root store cache: %w", err)
	}
	return &RootStore{root: abs, fileName: opts.RootFileName, file: f}, nil
}

// Root returns the absolute media root.
func (s *RootStore) Root() string {
	return s.root
}

// FileName returns the base name of the root store file.
func (s *RootStore) FileName() string {
	return s.fileName
}

// Path returns the root store file path.
func (s *RootStore) Path() string {
	return filepath.Join(s.root, s.fileName)
}

// ReadAll returns every mirrored record keyed by root-relative path.
func (s *RootStore) ReadAll() (map[string]Record, error) {
	return s.file.read(s.Path())
}

// WriteAll replaces the root store. An empty set still produces a file.
func (s *RootStore) WriteAll(records map[string]Record) error {
	return s.file.write(s.Path(), records, false)
}

// RelKey converts an absolute path under root into a root store key.
func RelKey(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not under %s", ErrInvalidName, absPath, root)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s is not under %s", ErrInvalidName, absPath, root)
	}
	return rel, nil
}

// JoinKey builds the root store key for name inside the directory whose key
// is dirKey ("." or "" for the root itself).
func JoinKey(dirKey, name string) string {
	if dirKey == "" || dirKey == "." {
		return name
	}
	return path.Join(dirKey, name)
}

package tagstore

import (
	"errors"
	"io/fs"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"visionvault/internal/filesystem"
	"visionvault/internal/hidden"
	"visionvault/internal/logging"
	"visionvault/internal/metrics"
)

const storeFilePerm = 0o644

type cacheEntry struct {
	modTime time.Time
	size    int64
	records map[string]Record
}

// storeFile performs the bracketed, cached I/O shared by both store kinds.
type storeFile struct {
	label string // metrics label: "directory" or "root"
	attr  hidden.Attribute
	retry filesystem.RetryConfig
	cache *lru.Cache[string, cacheEntry]
}

func newStoreFile(label string, attr hidden.Attribute, retry filesystem.RetryConfig, cacheSize int) (*storeFile, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &storeFile{label: label, attr: attr, retry: retry, cache: cache}, nil
}

func (f *storeFile) record(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(f.label, operation, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(f.label, operation).Observe(time.Since(start).Seconds())
}

// read returns a private copy of the records in path. A missing file yields
// an empty map and no error.
func (f *storeFile) read(path string) (records map[string]Record, err error) {
	start := time.Now()
	defer func() { f.record("read", start, err) }()

	info, err := filesystem.StatWithRetry(path, f.retry)
	if errors.Is(err, fs.ErrNotExist) {
		f.cache.Remove(path)
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, WrapPath("stat", path, err)
	}

	if entry, ok := f.cache.Get(path); ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		metrics.StoreCacheHits.Inc()
		return copyRecords(entry.records), nil
	}
	metrics.StoreCacheMisses.Inc()

	var data []byte
	err = hidden.Bracket(f.attr, path, hidden.Restore, func() error {
		var readErr error
		data, readErr = filesystem.ReadFileWithRetry(path, f.retry)
		return readErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Record), nil
	}
	if err != nil {
		return nil, WrapPath("read", path, err)
	}

	records = DecodeAll(data, func(lineNo int, lineErr error) {
		metrics.StoreCorruptLines.WithLabelValues(f.label).Inc()
		logging.Debug("Skipping line %d of %s: %v", lineNo, path, lineErr)
	})

	f.cache.Add(path, cacheEntry{modTime: info.ModTime(), size: info.Size(), records: copyRecords(records)})
	return records, nil
}

// write replaces path with records. An empty set removes the file when
// removeEmpty is true.
func (f *storeFile) write(path string, records map[string]Record, removeEmpty bool) (err error) {
	if len(records) == 0 && removeEmpty {
		return f.remove(path)
	}

	start := time.Now()
	defer func() { f.record("write", start, err) }()

	data := EncodeAll(records)
	err = hidden.Bracket(f.attr, path, hidden.Apply, func() error {
		return writeFileAtomic(path, data, storeFilePerm)
	})
	if err != nil {
		f.cache.Remove(path)
		return WrapPath("write", path, err)
	}

	if info, statErr := os.Stat(path); statErr == nil {
		f.cache.Add(path, cacheEntry{modTime: info.ModTime(), size: info.Size(), records: copyRecords(records)})
	} else {
		f.cache.Remove(path)
	}
	return nil
}

func (f *storeFile) remove(path string) (err error) {
	start := time.Now()
	defer func() { f.record("remove", start, err) }()

	f.cache.Remove(path)
	err = hidden.Bracket(f.attr, path, hidden.Restore, func() error {
		return os.Remove(path)
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapPath("remove", path, err)
	}
	return nil
}

func copyRecords(src map[string]Record) map[string]Record {
	dst := make(map[string]Record, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

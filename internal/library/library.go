package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"visionvault/internal/captioner"
	"visionvault/internal/logging"
	"visionvault/internal/media"
	"visionvault/internal/mediatypes"
	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
)

// Captioner produces tags for an image file.
type Captioner interface {
	Caption(ctx context.Context, path string) (captioner.Caption, error)
}

// Throttle delays image processing under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// DefaultUploadMaxBytes caps the size of a single upload.
const DefaultUploadMaxBytes = 50 << 20

// maxNameLength is the longest file name UpdateFile accepts.
const maxNameLength = 255

// Library implements the mutations, search and captioning pass on top of
// the stores.
type Library struct {
	root           string
	scanner        *media.Scanner
	sync           *tagsync.Coordinator
	dirs           *tagstore.DirStore
	roots          *tagstore.RootStore
	captioner      Captioner
	throttle       Throttle
	uploadMaxBytes int64
}

// Options configures a Library.
type Options struct {
	Captioner      Captioner
	Throttle       Throttle
	UploadMaxBytes int64
}

// New creates a Library.
func New(scanner *media.Scanner, coord *tagsync.Coordinator, opts Options) *Library {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = DefaultUploadMaxBytes
	}
	return &Library{
		root:           scanner.Root(),
		scanner:        scanner,
		sync:           coord,
		dirs:           coord.DirStore(),
		roots:          coord.RootStore(),
		captioner:      opts.Captioner,
		throttle:       opts.Throttle,
		uploadMaxBytes: opts.UploadMaxBytes,
	}
}

// Scanner returns the scanner used for listings.
func (l *Library) Scanner() *media.Scanner {
	return l.scanner
}

// Coordinator returns the sync coordinator.
func (l *Library) Coordinator() *tagsync.Coordinator {
	return l.sync
}

func recordMutation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LibraryMutationsTotal.WithLabelValues(operation, status).Inc()
}

// resolveFile maps a request path to an existing regular file.
func (l *Library) resolveFile(requestPath string) (abs, key string, err error) {
	abs, key, err = media.Resolve(l.root, requestPath)
	if err != nil {
		return "", "", err
	}
	if key == "" || hiddenKey(key) {
		return "", "", fmt.Errorf("%w: %q", tagstore.ErrInvalidName, requestPath)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", tagstore.WrapPath("stat", abs, err)
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is a directory", tagstore.ErrInvalidName, key)
	}
	return abs, key, nil
}

// resolveDir maps a request path to an existing directory.
func (l *Library) resolveDir(requestPath string) (abs, key string, err error) {
	abs, key, err = media.Resolve(l.root, requestPath)
	if err != nil {
		return "", "", err
	}
	if hiddenKey(key) {
		return "", "", fmt.Errorf("%w: %q", tagstore.ErrInvalidName, requestPath)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", tagstore.WrapPath("stat", abs, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", tagstore.ErrInvalidName, key)
	}
	return abs, key, nil
}

// hiddenKey reports whether any component of key is hidden by name.
func hiddenKey(key string) bool {
	for _, part := range strings.Split(key, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// dirKey returns the root store key of the directory containing key.
func dirKey(key string) string {
	d := path.Dir(key)
	if d == "." {
		return ""
	}
	return d
}

// FilePath returns the absolute path of a servable file. Hidden files,
// including the stores, are reported as not found.
func (l *Library) FilePath(requestPath string) (string, error) {
	abs, key, err := media.Resolve(l.root, requestPath)
	if err != nil {
		return "", err
	}
	if key == "" || hiddenKey(key) {
		return "", tagstore.WrapPath("open", abs, fs.ErrNotExist)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", tagstore.WrapPath("stat", abs, err)
	}
	if info.IsDir() {
		return "", tagstore.WrapPath("open", abs, fs.ErrNotExist)
	}
	return abs, nil
}

// ValidateName checks a new file name for UpdateFile and uploads.
func ValidateName(name string) error {
	switch {
	case name == "" || strings.TrimSpace(name) != name:
		return fmt.Errorf("%w: %q must be non-empty without surrounding spaces", tagstore.ErrInvalidName, name)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: name longer than %d bytes", tagstore.ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", tagstore.ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q would be hidden", tagstore.ErrInvalidName, name)
	}
	return nil
}

// Update lists the fields UpdateFile should change. Nil fields are left
// untouched.
type Update struct {
	Name        *string
	Tags        *string
	Description *string
}

// UpdateFile renames and/or retags one file. The directory store is
// committed first and the final record is then propagated to the root store
// under the new path. Renaming onto an existing name fails with ErrExists
// and changes nothing.
func (l *Library) UpdateFile(requestPath string, u Update) (rec tagstore.Record, err error) {
	operation := "update"
	if u.Name != nil {
		operation = "rename"
	}
	defer func() { recordMutation(operation, err) }()

	abs, key, err := l.resolveFile(requestPath)
	if err != nil {
		return tagstore.Record{}, err
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	newName := name
	if u.Name != nil && *u.Name != name {
		if err := ValidateName(*u.Name); err != nil {
			return tagstore.Record{}, err
		}
		newName = *u.Name
	}

	unlock := l.sync.LockDir(dir)
	defer unlock()

	records, err := l.dirs.ReadAll(dir)
	if err != nil {
		return tagstore.Record{}, err
	}

	rec, ok := records[name]
	if !ok {
		rec = tagstore.Untagged(name, mediatypes.Classify(name))
	}

	renamed := newName != name
	dest := filepath.Join(dir, newName)
	if renamed {
		if err := l.checkFree(abs, dest); err != nil {
			return tagstore.Record{}, err
		}
		if err := os.Rename(abs, dest); err != nil {
			return tagstore.Record{}, tagstore.WrapPath("rename", abs, err)
		}
	}

	rec = applyUpdate(rec, newName, u)
	delete(records, name)
	records[newName] = rec

	if err := l.dirs.WriteAll(dir, records); err != nil {
		if renamed {
			if rbErr := os.Rename(dest, abs); rbErr != nil {
				logging.Error("Failed to undo rename of %s after store write failure: %v", abs, rbErr)
			}
		}
		return tagstore.Record{}, err
	}

	newKey := tagstore.JoinKey(dirKey(key), newName)
	changes := []tagsync.Change{tagsync.Upserted(newKey, rec)}
	if renamed {
		changes = append(changes, tagsync.Removed(key))
	}
	// A failed propagation is queued for retry; the update itself succeeded.
	_ = l.sync.Propagate(changes...)

	logging.Debug("Updated %s -> %s (%s)", key, newKey, rec.Status)
	return rec.WithKey(newKey), nil
}

// checkFree fails with ErrExists when dest is taken. On case-insensitive
// filesystems a change of case resolves dest to the source itself, which is
// allowed.
func (l *Library) checkFree(src, dest string) error {
	destInfo, err := os.Lstat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return tagstore.WrapPath("stat", dest, err)
	}
	if srcInfo, err := os.Lstat(src); err == nil && os.SameFile(srcInfo, destInfo) {
		return nil
	}
	return tagstore.WrapPath("rename", dest, fs.ErrExist)
}

// applyUpdate returns rec with the requested fields changed and its format
// recomputed for name.
func applyUpdate(rec tagstore.Record, name string, u Update) tagstore.Record {
	rec.Key = name
	rec.Format = mediatypes.Classify(name)

	if u.Tags != nil {
		parsed := tagstore.NewRecord(name, rec.Format, tagstore.JoinTags(tagstore.SplitTags(*u.Tags)), "")
		rec.Status = parsed.Status
		rec.Tags = parsed.Tags
	}
	if u.Description != nil {
		rec.Description = tagstore.NewRecord(name, rec.Format, "", strings.TrimSpace(*u.Description)).Description
	}
	return rec
}

// DeleteFile removes a file and its records. A permission error from the
// removal is ignored when the file turns out to be gone. The directory store
// file is deleted once it holds no records.
func (l *Library) DeleteFile(requestPath string) (err error) {
	defer func() { recordMutation("delete", err) }()

	abs, key, err := media.Resolve(l.root, requestPath)
	if err != nil {
		return err
	}
	if key == "" || hiddenKey(key) {
		return fmt.Errorf("%w: %q", tagstore.ErrInvalidName, requestPath)
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	unlock := l.sync.LockDir(dir)
	defer unlock()

	records, err := l.dirs.ReadAll(dir)
	if err != nil {
		return err
	}
	_, hasRecord := records[name]

	info, statErr := os.Lstat(abs)
	switch {
	case statErr == nil && info.IsDir():
		return fmt.Errorf("%w: %s is a directory", tagstore.ErrInvalidName, key)
	case errors.Is(statErr, fs.ErrNotExist):
		if !hasRecord {
			return tagstore.WrapPath("delete", abs, statErr)
		}
		logging.Info("Removing record for already deleted file %s", key)
	case statErr != nil:
		return tagstore.WrapPath("stat", abs, statErr)
	default:
		if err := removeFile(abs); err != nil {
			return err
		}
	}

	if hasRecord {
		delete(records, name)
		if err := l.dirs.WriteAll(dir, records); err != nil {
			return err
		}
	}

	// A failed propagation is queued for retry; the delete itself succeeded.
	_ = l.sync.Propagate(tagsync.Removed(key))
	logging.Debug("Deleted %s", key)
	return nil
}

// osRemove is replaced in tests.
var osRemove = os.Remove

// removeFile deletes abs, treating a permission error as success when the
// file is gone afterwards.
func removeFile(abs string) error {
	err := osRemove(abs)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) {
		if _, statErr := os.Lstat(abs); errors.Is(statErr, fs.ErrNotExist) {
			logging.Debug("Remove of %s reported %v but the file is gone", abs, err)
			return nil
		}
	}
	return tagstore.WrapPath("delete", abs, err)
}

// Search returns every root store record whose path, tags or description
// contains query, ignoring case, in store order.
func (l *Library) Search(query string) ([]tagstore.Record, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("%w: empty search query", tagstore.ErrInvalidName)
	}

	start := time.Now()
	records, err := l.roots.ReadAll()
	if err != nil {
		return nil, err
	}

	var matches []tagstore.Record
	for _, key := range sortedKeys(records) {
		r := records[key].WithKey(key)
		if r.Matches(q) {
			matches = append(matches, r)
		}
	}

	metrics.SearchQueriesTotal.Inc()
	metrics.SearchResultsReturned.Observe(float64(len(matches)))
	logging.Debug("Search %q matched %d of %d records in %v", q, len(matches), len(records), time.Since(start))
	return matches, nil
}

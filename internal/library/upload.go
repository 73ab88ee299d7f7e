package library

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
)

const maxUniqueAttempts = 1000

// SaveUpload stores an uploaded image in the directory named by
// requestPath under a name derived from originalName (or a timestamp when
// none is given) that does not collide with an existing file. The new file
// gets an untagged record, which is propagated.
func (l *Library) SaveUpload(requestPath, originalName, contentType string, r io.Reader) (rec tagstore.Record, err error) {
	defer func() { recordMutation("upload", err) }()

	dir, key, err := l.resolveDir(requestPath)
	if err != nil {
		return tagstore.Record{}, err
	}

	ext, ok := mediatypes.UploadExtension(contentType)
	if !ok {
		if e := strings.ToLower(filepath.Ext(originalName)); mediatypes.IsImage(originalName) {
			ext = e
		} else {
			return tagstore.Record{}, fmt.Errorf("%w: unsupported upload type %q", tagstore.ErrInvalidName, contentType)
		}
	}

	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if originalName == "" || ValidateName(base) != nil {
		base = "pasted_" + time.Now().Format("20060102_150405")
	}

	unlock := l.sync.LockDir(dir)
	defer unlock()

	f, name, err := createUnique(dir, base, ext)
	if err != nil {
		return tagstore.Record{}, err
	}
	abs := filepath.Join(dir, name)

	written, copyErr := io.Copy(f, io.LimitReader(r, l.uploadMaxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		err = tagstore.WrapPath("write", abs, copyErr)
	case closeErr != nil:
		err = tagstore.WrapPath("close", abs, closeErr)
	case written > l.uploadMaxBytes:
		err = fmt.Errorf("%w: upload exceeds %d bytes", tagstore.ErrInvalidName, l.uploadMaxBytes)
	}
	if err != nil {
		discardUpload(abs)
		return tagstore.Record{}, err
	}

	records, err := l.dirs.ReadAll(dir)
	if err != nil {
		discardUpload(abs)
		return tagstore.Record{}, err
	}
	rec = tagstore.Untagged(name, mediatypes.Classify(name))
	records[name] = rec
	if err := l.dirs.WriteAll(dir, records); err != nil {
		discardUpload(abs)
		return tagstore.Record{}, err
	}

	newKey := tagstore.JoinKey(key, name)
	_ = l.sync.Propagate(tagsync.Upserted(newKey, rec))

	logging.Info("Saved upload %s (%d bytes)", newKey, written)
	return rec.WithKey(newKey), nil
}

// discardUpload removes an upload that could not be recorded.
func discardUpload(abs string) {
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Failed to remove unrecorded upload %s: %v", abs, err)
	}
}

// createUnique creates base+ext in dir, or base_N+ext for the first free N.
func createUnique(dir, base, ext string) (*os.File, string, error) {
	for i := 0; i < maxUniqueAttempts; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", tagstore.WrapPath("create", filepath.Join(dir, name), err)
		}
	}
	return nil, "", tagstore.WrapPath("create", filepath.Join(dir, base+ext), fs.ErrExist)
}

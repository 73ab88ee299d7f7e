package library

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"visionvault/internal/captioner"
	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
	"visionvault/internal/workers"
)

// maxCaptionWorkers caps concurrent requests to the captioning service.
const maxCaptionWorkers = 4

// CaptionSummary reports what UpdateUntagged did.
type CaptionSummary struct {
	Added     int `json:"added"`
	Captioned int `json:"captioned"`
	Failed    int `json:"failed"`
}

// UpdateUntagged reconciles one directory store with the files on disk and
// captions every image still lacking tags. Files the captioner cannot handle
// keep an untagged record. Every touched record is propagated.
//
// The directory lock is released while the captioning service is called;
// results are merged afterwards and only applied to records that still
// need a caption.
func (l *Library) UpdateUntagged(ctx context.Context, requestPath string) (summary CaptionSummary, err error) {
	defer func() { recordMutation("caption", err) }()

	dir, key, err := l.resolveDir(requestPath)
	if err != nil {
		return summary, err
	}

	candidates, added, err := l.prepareCaptioning(dir, key)
	if err != nil {
		return summary, err
	}
	summary.Added = added

	results := l.captionAll(ctx, dir, candidates)

	unlock := l.sync.LockDir(dir)
	defer unlock()

	records, err := l.dirs.ReadAll(dir)
	if err != nil {
		return summary, err
	}

	var changes []tagsync.Change
	for _, name := range candidates {
		rec, ok := records[name]
		if !ok || !rec.NeedsCaption() {
			continue
		}
		caption, ok := results[name]
		switch {
		case ok:
			rec = rec.Tagged(caption.Tags)
			rec.Description = caption.Description
			summary.Captioned++
		case rec.Status == tagstore.StatusPending:
			// Placeholder: the file stays untagged and is retried next pass.
			rec.Status = tagstore.StatusUntagged
			summary.Failed++
		default:
			summary.Failed++
			continue
		}
		records[name] = rec
		changes = append(changes, tagsync.Upserted(tagstore.JoinKey(key, name), rec))
	}

	if len(changes) > 0 {
		if err := l.dirs.WriteAll(dir, records); err != nil {
			return summary, err
		}
		_ = l.sync.Propagate(changes...)
	}

	logging.Info("Captioning pass for /%s: %d added, %d captioned, %d failed", key, summary.Added, summary.Captioned, summary.Failed)
	return summary, ctx.Err()
}

// prepareCaptioning adds untagged records for files without one, commits
// and propagates them, and returns the files that need captioning.
func (l *Library) prepareCaptioning(dir, key string) (candidates []string, added int, err error) {
	unlock := l.sync.LockDir(dir)
	defer unlock()

	_, files, err := l.scanner.Children(dir)
	if err != nil {
		return nil, 0, err
	}
	records, err := l.dirs.ReadAll(dir)
	if err != nil {
		return nil, 0, err
	}

	var changes []tagsync.Change
	for _, entry := range files {
		name := entry.Name()
		rec, ok := records[name]
		if !ok {
			rec = tagstore.Untagged(name, mediatypes.Classify(name))
			records[name] = rec
			changes = append(changes, tagsync.Upserted(tagstore.JoinKey(key, name), rec))
			added++
		}
		if rec.Status == tagstore.StatusPending || (rec.NeedsCaption() && mediatypes.IsImage(name)) {
			candidates = append(candidates, name)
		}
	}

	if len(changes) > 0 {
		if err := l.dirs.WriteAll(dir, records); err != nil {
			return nil, 0, err
		}
		_ = l.sync.Propagate(changes...)
	}
	return candidates, added, nil
}

// captionAll captions the image candidates concurrently. Failures are
// logged and left out of the result.
func (l *Library) captionAll(ctx context.Context, dir string, names []string) map[string]captioner.Caption {
	results := make(map[string]captioner.Caption)
	if l.captioner == nil {
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForMixed(maxCaptionWorkers))

	for _, name := range names {
		if !mediatypes.IsImage(name) {
			continue
		}
		g.Go(func() error {
			if l.throttle != nil {
				if err := l.throttle.Wait(gctx); err != nil {
					return nil
				}
			}
			if gctx.Err() != nil {
				return nil
			}
			caption, err := l.captioner.Caption(gctx, filepath.Join(dir, name))
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logging.Warn("Captioning %s failed: %v", filepath.Join(dir, name), err)
				}
				return nil
			}
			mu.Lock()
			results[name] = caption
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

package indexer

import (
	"context"
	"path/filepath"
	"sort"

	"visionvault/internal/tagstore"
)

// Difference is one root store entry that does not match its directory
// store.
type Difference struct {
	Key  string          `json:"key"`
	Dir  tagstore.Record `json:"dir"`
	Root tagstore.Record `json:"root"`
}

// Report lists the divergence between directory stores, the root store and
// the files on disk.
type Report struct {
	Directories int          `json:"directories"`
	Records     int          `json:"records"`
	Missing     []string     `json:"missing,omitempty"`    // in a directory store, not in the root store
	Stale       []string     `json:"stale,omitempty"`      // in the root store only
	Differing   []Difference `json:"differing,omitempty"`  // in both with different values
	Unrecorded  []string     `json:"unrecorded,omitempty"` // files without any record
	Errors      []string     `json:"errors,omitempty"`
}

// Clean reports whether the stores agree with each other and the disk.
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Stale) == 0 && len(r.Differing) == 0 &&
		len(r.Unrecorded) == 0 && len(r.Errors) == 0
}

// Verify compares every directory store with the root store without
// changing either.
func (idx *Indexer) Verify(ctx context.Context) (*Report, error) {
	report := &Report{}
	expected := make(map[string]tagstore.Record)

	type pending struct{ dir, key string }
	stack := []pending{{idx.root, ""}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		folders, files, err := idx.scanner.Children(p.dir)
		if err != nil {
			if p.key == "" {
				return nil, err
			}
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		records, err := idx.dirs.ReadAll(p.dir)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Directories++

		for name, rec := range records {
			k := tagstore.JoinKey(p.key, name)
			expected[k] = rec.WithKey(k)
		}
		for _, f := range files {
			if _, ok := records[f.Name()]; !ok {
				report.Unrecorded = append(report.Unrecorded, tagstore.JoinKey(p.key, f.Name()))
			}
		}
		for i := len(folders) - 1; i >= 0; i-- {
			name := folders[i].Name()
			stack = append(stack, pending{filepath.Join(p.dir, name), tagstore.JoinKey(p.key, name)})
		}
	}

	actual, err := idx.sync.RootStore().ReadAll()
	if err != nil {
		return nil, err
	}
	report.Records = len(actual)

	for k, want := range expected {
		got, ok := actual[k]
		switch {
		case !ok:
			report.Missing = append(report.Missing, k)
		case got.WithKey(k) != want:
			report.Differing = append(report.Differing, Difference{Key: k, Dir: want, Root: got.WithKey(k)})
		}
	}
	for k := range actual {
		if _, ok := expected[k]; !ok {
			report.Stale = append(report.Stale, k)
		}
	}

	sort.Strings(report.Missing)
	sort.Strings(report.Stale)
	sort.Strings(report.Unrecorded)
	sort.Slice(report.Differing, func(i, j int) bool { return report.Differing[i].Key < report.Differing[j].Key })
	return report, nil
}

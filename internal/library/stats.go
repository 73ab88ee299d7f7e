package library

import (
	"path"
	"sort"

	"visionvault/internal/metrics"
	"visionvault/internal/tagstore"
)

// LibraryStats summarizes the root store. It implements
// metrics.StatsProvider.
func (l *Library) LibraryStats() (metrics.Stats, error) {
	records, err := l.roots.ReadAll()
	if err != nil {
		return metrics.Stats{}, err
	}

	stats := metrics.Stats{ByFormat: make(map[string]int)}
	dirs := make(map[string]struct{})
	for key, r := range records {
		stats.TotalRecords++
		switch r.Status {
		case tagstore.StatusTagged:
			stats.Tagged++
		case tagstore.StatusPending:
			stats.Pending++
		default:
			stats.Untagged++
		}
		stats.ByFormat[r.Format]++
		dirs[path.Dir(key)] = struct{}{}
	}
	stats.Directories = len(dirs)
	return stats, nil
}

func sortedKeys(records map[string]tagstore.Record) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

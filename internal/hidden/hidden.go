package hidden

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"visionvault/internal/logging"
	"visionvault/internal/metrics"
)

// Attribute sets, clears and queries the hidden flag on a path.
type Attribute interface {
	Hide(path string) error
	Unhide(path string) error
	IsHidden(path string) (bool, error)
}

// Mode controls what Bracket does with the flag once fn returns.
type Mode int

const (
	// Restore re-applies the flag only if it was set before.
	Restore Mode = iota
	// Apply always sets the flag afterwards, provided the path exists.
	Apply
)

// IsHiddenName reports whether a base name is hidden by naming convention.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}

// Bracket runs fn with the hidden flag on path cleared. The flag is put back
// according to mode even if fn panics.
func Bracket(attr Attribute, path string, mode Mode, fn func() error) error {
	wasHidden, err := attr.IsHidden(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		report("query", path, err)
	}

	if wasHidden {
		if err := attr.Unhide(path); err != nil {
			report("unhide", path, err)
		}
	}

	defer func() {
		if mode == Restore && !wasHidden {
			return
		}
		if err := attr.Hide(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			report("hide", path, err)
		}
	}()

	return fn()
}

func report(op, path string, err error) {
	logging.Warn("hidden attribute %s failed for %s: %v", op, path, err)
	metrics.HiddenAttributeErrors.WithLabelValues(op).Inc()
}

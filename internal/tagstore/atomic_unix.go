//go:build !windows

package tagstore

import (
	"os"

	"github.com/google/renameio"
)

// writeFileAtomic replaces path with data via a temp file and rename, so a
// crash leaves either the old or the new store on disk.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}

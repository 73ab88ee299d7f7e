// Command vvctl works on a VisionVault media tree without the server:
// sweeps, search, listings, tag edits, deletes and store verification.
package main

import (
	"os"

	"visionvault/cmd/vvctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package testing

import (
	"os"
	"path/filepath"
)

const DefaultTestDirRoot = "posacc-test"

// DefaultTestDir is a shared scratch directory for tests that want to leave artifacts behind for inspection.
func DefaultTestDir() string {
	return filepath.Join(os.TempDir(), DefaultTestDirRoot)
}

package job

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/geoffjay/plantd-job/internal/codec"
)

// materializeBundle writes a SEND_FILE payload into a fresh scratch
// directory and returns its path. Collisions within the bundle are
// last-write-wins because map iteration order is unspecified and each
// write simply overwrites the previous one under the same relative path;
// keys containing a path separator get their intermediate directories
// created, matching spec.md §4.4's requirement that the loader not assume
// flat names.
func materializeBundle(bundle codec.FileBundle) (string, error) {
	dir, err := os.MkdirTemp("", fmt.Sprintf("plantd-job-%s-", uuid.NewString()))
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	for name, contents := range bundle {
		path := filepath.Join(dir, filepath.FromSlash(name))

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create intermediate directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, contents, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	return dir, nil
}

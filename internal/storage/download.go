package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Download copies key from src into destPath. The body goes to a temp file
// beside destPath and is renamed over it only once fully written, so a failed
// transfer leaves any previous file untouched.
func Download(ctx context.Context, src Source, key, destPath string) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}

	body, err := src.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed creating temp file for %s: %w", destPath, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("failed reading %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return n, fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return n, fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	committed = true
	return n, nil
}

// Package lfs recognises git-lfs pointer files left in a checkout in place of
// the real binary content.
package lfs

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

const (
	// MaxPointerSize is the exclusive size bound for a pointer file. Anything
	// at or above it is treated as real content without being read.
	MaxPointerSize = 300

	// Marker appears on the first line of every pointer file
	// ("version https://git-lfs.github.com/spec/v1").
	Marker = "git-lfs"
)

// Inspect classifies the file at path.
func Inspect(path string) (domain.LocalFileState, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Absent, nil
	}
	if err != nil {
		return domain.Absent, fmt.Errorf("stat %s: %w", path, err)
	}
	// a directory can never become the asset, so it is reported, not skipped
	if info.IsDir() {
		return domain.Absent, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() >= MaxPointerSize {
		return domain.Present, nil
	}

	f, err := os.Open(path) // #nosec G304 -- path is derived from the manifest
	if err != nil {
		return domain.Absent, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ok, err := HasMarker(f)
	if err != nil {
		return domain.Absent, fmt.Errorf("read %s: %w", path, err)
	}
	if ok {
		return domain.PlaceholderStub, nil
	}
	return domain.Present, nil
}

// IsPlaceholder is Inspect collapsed to a bool; unreadable files are not
// placeholders.
func IsPlaceholder(path string) bool {
	state, err := Inspect(path)
	return err == nil && state == domain.PlaceholderStub
}

// HasMarker reports whether the first line of r contains Marker. Bytes are
// compared raw so binary content never fails decoding.
func HasMarker(r io.Reader) (bool, error) {
	line, err := bufio.NewReaderSize(r, MaxPointerSize).ReadSlice('\n')
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return false, err
	}
	return bytes.Contains(line, []byte(Marker)), nil
}

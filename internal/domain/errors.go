package domain

import (
	"errors"
	"fmt"
)

// ErrDirectoryNotFound is returned when no project directory with an assets
// folder can be resolved.
var ErrDirectoryNotFound = errors.New("assets directory not found")

// DirectoryResolutionError is fatal: the run stops before any fetch.
type DirectoryResolutionError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *DirectoryResolutionError) Error() string {
	if e.Dir == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Dir)
}

func (e *DirectoryResolutionError) Unwrap() error {
	return e.Err
}

// TransportError covers non-2xx responses and connection, timeout or TLS
// failures for a single fetch.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PlaceholderPersistsError means the remote served a placeholder stub itself.
type PlaceholderPersistsError struct {
	Path AssetPath
}

func (e *PlaceholderPersistsError) Error() string {
	return fmt.Sprintf("%s: remote returned an LFS placeholder", e.Path)
}

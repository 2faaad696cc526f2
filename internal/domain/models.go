// internal/domain/models.go
package domain

import (
	"path/filepath"
	"strings"
)

// AssetPath is a forward-slash relative path identifying one asset,
// e.g. "assets/sprites/grass.jpg".
type AssetPath string

// NewAssetPath normalizes separators so paths written on Windows compare
// equal to the manifest entries.
func NewAssetPath(p string) AssetPath {
	return AssetPath(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
}

func (p AssetPath) String() string {
	return string(p)
}

// LocalPath joins the asset path onto baseDir using OS separators.
func (p AssetPath) LocalPath(baseDir string) string {
	return filepath.Join(baseDir, filepath.FromSlash(string(p)))
}

// Result is the outcome of reconciling a single asset path.
type Result struct {
	Path AssetPath
	// Prior is the local state observed before any fetch.
	Prior   LocalFileState
	Outcome FetchOutcome
	// BytesWritten is the size of the fetched body, zero unless fetched.
	BytesWritten int64
	Err          error
}

// Failure pairs a failed path with the error detail captured for the report.
type Failure struct {
	Path AssetPath
	Err  error
}

// RunSummary accumulates outcomes across a single run.
type RunSummary struct {
	Total    int
	Ok       int
	Skipped  int
	Failed   int
	Failures []Failure
}

// Record adds one result to the tally.
func (s *RunSummary) Record(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeOk:
		s.Ok++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Path: r.Path, Err: r.Err})
	}
}

// FailedPaths lists the failed asset paths in processing order.
func (s RunSummary) FailedPaths() []AssetPath {
	paths := make([]AssetPath, 0, len(s.Failures))
	for _, f := range s.Failures {
		paths = append(paths, f.Path)
	}
	return paths
}

// Success is true when every entry ended Ok or Skipped.
func (s RunSummary) Success() bool {
	return s.Failed == 0
}

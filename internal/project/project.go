// Package project resolves the checkout root that holds the assets folder.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

const (
	DefaultAssetsDir  = "assets"
	DefaultMarkerFile = "Cargo.toml"
)

// Predicate tests a candidate directory.
type Predicate func(dir string) bool

// HasSubdir returns a predicate that is true when dir/name is a directory.
func HasSubdir(name string) Predicate {
	return func(dir string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && info.IsDir()
	}
}

// HasFile returns a predicate that is true when dir/name is a regular file.
func HasFile(name string) Predicate {
	return func(dir string) bool {
		info, err := os.Stat(filepath.Join(dir, name))
		return err == nil && info.Mode().IsRegular()
	}
}

// Find walks from start up to the filesystem root and returns the first
// directory satisfying both predicates.
func Find(start string, hasDir, hasMarker Predicate) (string, bool) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for {
		if hasDir(current) && hasMarker(current) {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Resolver turns the optional CLI argument into a project root.
type Resolver struct {
	AssetsDir  string
	MarkerFile string
}

// NewResolver builds a Resolver, falling back to the default names.
func NewResolver(assetsDir, markerFile string) Resolver {
	if assetsDir == "" {
		assetsDir = DefaultAssetsDir
	}
	if markerFile == "" {
		markerFile = DefaultMarkerFile
	}
	return Resolver{AssetsDir: assetsDir, MarkerFile: markerFile}
}

// Resolve returns the absolute project root. An explicit dir must exist and
// contain the assets folder. Without one, cwd wins if it holds the assets
// folder; otherwise cwd and its ancestors are searched for assets plus marker.
func (r Resolver) Resolve(explicit, cwd string) (string, error) {
	hasAssets := HasSubdir(r.AssetsDir)

	if explicit != "" {
		dir, err := filepath.Abs(explicit)
		if err != nil {
			return "", &domain.DirectoryResolutionError{Dir: explicit, Reason: "invalid directory", Err: err}
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			if err == nil {
				err = fmt.Errorf("not a directory")
			}
			return "", &domain.DirectoryResolutionError{Dir: dir, Reason: "directory does not exist", Err: err}
		}
		if !hasAssets(dir) {
			return "", &domain.DirectoryResolutionError{
				Dir:    dir,
				Reason: fmt.Sprintf("no '%s' folder found in", r.AssetsDir),
				Err:    domain.ErrDirectoryNotFound,
			}
		}
		return dir, nil
	}

	start, err := filepath.Abs(cwd)
	if err != nil {
		return "", &domain.DirectoryResolutionError{Dir: cwd, Reason: "invalid working directory", Err: err}
	}
	if hasAssets(start) {
		return start, nil
	}
	if dir, ok := Find(start, hasAssets, HasFile(r.MarkerFile)); ok {
		return dir, nil
	}
	return "", &domain.DirectoryResolutionError{
		Reason: fmt.Sprintf("'%s' folder not found from %s", r.AssetsDir, start),
		Err:    domain.ErrDirectoryNotFound,
	}
}

// Cargo is the subset of Cargo.toml shown in the run banner.
type Cargo struct {
	Package *struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Describe returns a short label for the project at root, e.g.
// "workspace (12 members)" or "egregoria 0.1.0". Missing or unparsable
// manifests yield an empty string.
func Describe(root, markerFile string) string {
	data, err := os.ReadFile(filepath.Join(root, markerFile)) // #nosec G304 -- root was resolved above
	if err != nil {
		return ""
	}

	var c Cargo
	if err := toml.Unmarshal(data, &c); err != nil {
		return ""
	}
	switch {
	case c.Workspace != nil:
		return fmt.Sprintf("workspace (%d members)", len(c.Workspace.Members))
	case c.Package != nil && c.Package.Version != "":
		return fmt.Sprintf("%s %s", c.Package.Name, c.Package.Version)
	case c.Package != nil:
		return c.Package.Name
	}
	return ""
}

// Package manifest provides the fixed set of asset paths a project checkout
// must contain. The table is embedded at build time and parsed once.
package manifest

import (
	_ "embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/ProhorTaim/Egregoria/internal/domain"
)

//go:embed manifest.toml
var embedded []byte

// Category groups entries for readability only.
type Category struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Prefix      string   `toml:"prefix"`
	Files       []string `toml:"files"`
}

// Table is the decoded manifest document.
type Table struct {
	Categories []Category `toml:"category"`
}

var (
	once    sync.Once
	table   Table
	entries []domain.AssetPath
)

func load() {
	once.Do(func() {
		t, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("manifest: embedded table is invalid: %v", err))
		}
		table = t
		entries = t.Flatten()
	})
}

// Parse decodes a manifest document.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse manifest: %w", err)
	}
	for i, c := range t.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return Table{}, fmt.Errorf("category[%d] missing name", i)
		}
	}
	return t, nil
}

// Flatten joins every category's files onto its prefix and returns the
// sorted, deduplicated union.
func (t Table) Flatten() []domain.AssetPath {
	seen := make(map[domain.AssetPath]struct{})
	for _, c := range t.Categories {
		for _, f := range c.Files {
			p := domain.NewAssetPath(path.Join(c.Prefix, f))
			seen[p] = struct{}{}
		}
	}

	out := make([]domain.AssetPath, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entries returns the full manifest in sorted order. Callers get their own
// copy.
func Entries() []domain.AssetPath {
	load()
	out := make([]domain.AssetPath, len(entries))
	copy(out, entries)
	return out
}

// CategorySummary is a category name with its entry count.
type CategorySummary struct {
	Name        string
	Description string
	Count       int
}

// Categories lists the manifest categories in declaration order.
func Categories() []CategorySummary {
	load()
	out := make([]CategorySummary, 0, len(table.Categories))
	for _, c := range table.Categories {
		out = append(out, CategorySummary{Name: c.Name, Description: c.Description, Count: len(c.Files)})
	}
	return out
}

// Filter keeps the entries matching at least one doublestar pattern. No
// patterns means no filtering.
func Filter(in []domain.AssetPath, patterns []string) ([]domain.AssetPath, error) {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return in, nil
	}

	out := make([]domain.AssetPath, 0, len(in))
	for _, entry := range in {
		for _, p := range cleaned {
			if ok, _ := doublestar.Match(p, entry.String()); ok {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}

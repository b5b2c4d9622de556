package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// LoadCatalogs reads every *.yaml / *.yml file directly under root.
func (l *FSLoader) LoadCatalogs(ctx context.Context, root string) ([]Catalog, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	out := make([]Catalog, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		cat, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	if err := checkDuplicateIDs(out); err != nil {
		return nil, fmt.Errorf("%s: %w", root, err)
	}
	sortCatalogs(out)
	return out, nil
}

func (l *FSLoader) LoadFile(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}
	cat, err := parseCatalog(b)
	if err != nil {
		return Catalog{}, fmt.Errorf("load catalog %s: %w", path, err)
	}
	cat.Path = path
	return cat, nil
}

// Builtin returns the catalogs compiled into the binary.
func Builtin() ([]Catalog, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make([]Catalog, 0, len(names))
	for _, name := range names {
		b, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		cat, err := parseCatalog(b)
		if err != nil {
			return nil, fmt.Errorf("builtin catalog %s: %w", name, err)
		}
		cat.Path = "builtin:" + filepath.Base(name)
		out = append(out, cat)
	}
	sortCatalogs(out)
	return out, nil
}

// Merge overlays extra on top of base; an extra catalog replaces a base
// catalog with the same id.
func Merge(base, extra []Catalog) []Catalog {
	byID := make(map[string]Catalog, len(base)+len(extra))
	for _, c := range base {
		byID[c.CatalogID] = c
	}
	for _, c := range extra {
		byID[c.CatalogID] = c
	}
	out := make([]Catalog, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sortCatalogs(out)
	return out
}

func Find(cats []Catalog, id string) (Catalog, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, c := range cats {
		if c.CatalogID == id {
			return c, nil
		}
	}
	return Catalog{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

func IDs(cats []Catalog) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.CatalogID)
	}
	return out
}

func parseCatalog(b []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		return cat, err
	}
	if err := cat.Validate(); err != nil {
		return cat, err
	}
	applyCatalogDefaults(&cat)
	return cat, nil
}

func checkDuplicateIDs(cats []Catalog) error {
	seen := map[string]string{}
	for _, c := range cats {
		if prev, ok := seen[c.CatalogID]; ok {
			return fmt.Errorf("duplicate catalog_id %q in %s and %s", c.CatalogID, prev, c.Path)
		}
		seen[c.CatalogID] = c.Path
	}
	return nil
}

func sortCatalogs(cats []Catalog) {
	sort.Slice(cats, func(i, j int) bool { return cats[i].CatalogID < cats[j].CatalogID })
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

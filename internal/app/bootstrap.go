package app

import (
	"context"
	"fmt"
	"path/filepath"

	"ctfdojo/internal/catalog"
	"ctfdojo/internal/state"
)

// LoadCatalogs returns the built-in catalogs with any catalogs under dir
// layered on top.
func LoadCatalogs(ctx context.Context, dir string) ([]catalog.Catalog, error) {
	cats, err := catalog.Builtin()
	if err != nil {
		return nil, fmt.Errorf("load builtin catalogs: %w", err)
	}
	if dir == "" {
		return cats, nil
	}
	extra, err := catalog.NewLoader().LoadCatalogs(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs from %s: %w", dir, err)
	}
	return catalog.Merge(cats, extra), nil
}

// OpenStore opens the round-history ledger. With stats disabled, or while a
// demo scenario is staged, history lives in memory only.
func OpenStore(ctx context.Context, cfg Config) (state.Store, error) {
	if cfg.NoStats || cfg.DemoScenario != "" {
		return state.NewMemoryStore(), nil
	}
	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

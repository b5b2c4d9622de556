package catalog

import "context"

type Loader interface {
	LoadCatalogs(ctx context.Context, root string) ([]Catalog, error)
	LoadFile(path string) (Catalog, error)
}

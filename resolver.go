package metacat

import (
	"context"
	"errors"

	"github.com/mwantia/metacat/data"
)

// resolveOwner walks the namespace upward to find the nearest registered
// datasource that owns it. It returns the datasource definition together
// with the residual namespace: the segments left after removing the owner
// prefix and the datasource's own name segment.
//
// The walk starts at the deepest level and shifts one level up after every
// failed lookup. It terminates once the remaining root has a single
// segment, so resolution never crosses below the top-level reserved
// segment. A nil definition with a nil error means no owner was found.
//
// This upward search lets one physical datasource registration own an
// arbitrarily deep sub-tree of virtual namespaces.
func (c *Catalog) resolveOwner(ctx context.Context, namespace data.Namespace) (*data.DatasourceDefinition, data.Namespace, error) {
	root := namespace.Parent()
	candidate := namespace.Last()

	for len(root) > 1 {
		def, err := c.registry.LookupDatasource(ctx, root, candidate)
		if err == nil {
			residual := namespace.Drop(len(def.Owner) + 1)
			c.logger.Debug("resolved %s to datasource %s (kind %s), residual %q",
				namespace, def.FullNamespace(), def.Kind, residual.String())
			return def, residual, nil
		}
		if !errors.Is(err, data.ErrDatasourceNotFound) {
			return nil, nil, err
		}

		candidate = root.Last()
		root = root.Parent()
	}

	return nil, nil, nil
}

// resolveBackend resolves the owning datasource and constructs its backend
// catalog variant through the kind table.
func (c *Catalog) resolveBackend(ctx context.Context, namespace data.Namespace) (*data.DatasourceDefinition, BackendCatalog, data.Namespace, error) {
	def, residual, err := c.resolveOwner(ctx, namespace)
	if err != nil || def == nil {
		return nil, nil, nil, err
	}

	backend, err := c.kinds.Resolve(def, c.registry)
	if err != nil {
		return nil, nil, nil, err
	}

	return def, backend, residual, nil
}

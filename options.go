package metacat

import "github.com/mwantia/metacat/log"

// Option configures catalog construction.
type Option func(*Catalog) error

// WithLogger sets the logger used by the dispatcher and resolver.
func WithLogger(logger *log.Logger) Option {
	return func(c *Catalog) error {
		c.logger = logger.Named("catalog")
		return nil
	}
}

// WithKind registers a backend kind during construction.
func WithKind(kind string, factory BackendFactory) Option {
	return func(c *Catalog) error {
		return c.kinds.Register(kind, factory)
	}
}

package metacat

import "errors"

// Standard catalog errors surfaced by the dispatcher. All of them are fatal
// for the call that produced them; the catalog never retries internally.
var (
	// Namespace resolution errors
	ErrNamespaceNotDefined = errors.New("metacat: namespace not defined by any datasource")
	ErrMissingNamespace    = errors.New("metacat: identifier is missing a namespace")
	ErrInvalidNamespace    = errors.New("metacat: invalid namespace")
	ErrReservedNamespace   = errors.New("metacat: reserved root namespace cannot be removed")

	// Operation errors
	ErrUnsupportedOperation = errors.New("metacat: unsupported catalog operation")

	// Configuration errors
	ErrUnknownBackendKind = errors.New("metacat: unknown backend kind")
	ErrKindRegistered     = errors.New("metacat: backend kind already registered")
)

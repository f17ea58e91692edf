package data

import "errors"

// Standard registry and scan errors that implementations should use.
var (
	// Registry errors
	ErrDatasourceNotFound = errors.New("metacat: datasource not found")
	ErrDatasourceExists   = errors.New("metacat: datasource already exists")
	ErrNamespaceNotFound  = errors.New("metacat: namespace not found")
	ErrNamespaceExists    = errors.New("metacat: namespace already exists")
	ErrNamespaceNotEmpty  = errors.New("metacat: namespace not empty")
	ErrTableNotFound      = errors.New("metacat: table not found")
	ErrTableExists        = errors.New("metacat: table already exists")

	// Scan errors
	ErrNoRootPathMatch = errors.New("metacat: no configured root path matches file")
	ErrExtraction      = errors.New("metacat: text extraction failed")
	ErrReaderClosed    = errors.New("metacat: partition reader already closed")
	ErrObjectNotFound  = errors.New("metacat: file object not found")
)

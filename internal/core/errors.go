package core

import "errors"

// Error taxonomy. Validation failures map to 400 responses, catalog lookup
// failures to 500, and configuration errors abort startup. Link-resolution
// failures have no sentinel: they are absorbed into degraded results and
// never reach a caller.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrCatalogLookup  = errors.New("catalog lookup failed")
	ErrConfiguration  = errors.New("invalid configuration")
)

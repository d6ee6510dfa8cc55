package adapter

import "errors"

// Error kinds surfaced by the storage adapter. NotFound and EntryAlreadyExists
// are ordinary control-flow results callers branch on with errors.Is; the
// store-layer kinds are fatal to the operation but recoverable by retry or
// abort. DbCorrupt means a cross-table invariant was already broken before the
// call and must not be papered over as a normal miss.
var (
	ErrDbCreate           = errors.New("adapter: database creation failed")
	ErrDbOpen             = errors.New("adapter: database open failed")
	ErrDbWrite            = errors.New("adapter: database write failed")
	ErrDbCorrupt          = errors.New("adapter: database is corrupt")
	ErrNotFound           = errors.New("adapter: not found")
	ErrTransaction        = errors.New("adapter: transaction failed")
	ErrEntryAlreadyExists = errors.New("adapter: entry already exists")
	ErrSerialize          = errors.New("adapter: serialization failed")
)

// Package adapter maps the tree-shaped namespace and the append-only block log
// onto flat tables in an embedded ordered key-value store, enforcing the id
// and sibling-name uniqueness invariants.
package adapter

// Table names one of the store's logical tables. The schema is a fixed set of
// immutable constants; nothing is constructed lazily.
type Table string

const (
	// Blocks holds serialized audit-log blocks keyed by block id. Keys are
	// unique; a block is never overwritten or deleted.
	Blocks Table = "blocks/"
	// Nodes is the namespace multimap: all children of a parent share the
	// parent's id as their key. The child's own id is appended to the stored
	// key, which keeps a parent's duplicate run contiguous and stably ordered
	// by allocation order.
	Nodes Table = "nodes/"
	// Entries maps a node id to its objectclass tag. Keys are unique.
	Entries Table = "entries/"
	// Meta holds store-internal bookkeeping, currently only the id
	// high-water mark.
	Meta Table = "meta/"
)

// Transaction is a read handle over one underlying store transaction. Handles
// are single-use and must not be shared between goroutines. Calling any method
// after Commit is a programming error and panics.
type Transaction interface {
	// Get returns the value stored under exactly key. Absent keys fail
	// ErrNotFound.
	Get(table Table, key []byte) ([]byte, error)

	// Find scans the contiguous run of values stored under key in stored
	// order and returns the first one satisfying pred. It fails ErrNotFound
	// if the run is empty or exhausted without a match.
	Find(table Table, key []byte, pred func([]byte) bool) ([]byte, error)

	// Commit consumes the handle. For read-write handles either all staged
	// writes become durable and visible or none do.
	Commit() error

	// Discard releases the handle without committing, dropping all staged
	// writes. Discard after Commit is a no-op, so it is safe to defer.
	Discard()
}

// WriteTransaction additionally stages writes. At most one write transaction
// is open at a time across the whole store; readers run against a snapshot and
// never block the writer.
type WriteTransaction interface {
	Transaction

	// Put stages a write of value under key.
	Put(table Table, key, value []byte) error
}

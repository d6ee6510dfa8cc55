// Package arbor is the storage and integrity core of a directory service: a
// hierarchical namespace of typed entries persisted in an embedded ordered
// key-value store, combined with an append-only, cryptographically witnessed
// block log.
package arbor

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/arbordb/arbor/internal/adapter"
	"github.com/arbordb/arbor/internal/backup"
	"github.com/arbordb/arbor/internal/password"
	"github.com/arbordb/arbor/internal/wire"
	"github.com/arbordb/arbor/pkg/types"
)

// Config configures a database instance.
type Config struct {
	// Path is the data directory.
	Path string
	// MinimumFreeGB refuses to open the store below this much free disk
	// space. Zero disables the check.
	MinimumFreeGB uint
	// Logger is optional; a default logrus logger is used when nil.
	Logger *logrus.Logger
}

// DB is the top-level database handle.
type DB struct {
	log   *logrus.Logger
	store *adapter.DB
}

func (c *Config) storeConfig() adapter.StoreConfig {
	return adapter.StoreConfig{
		Path:          c.Path,
		MinimumFreeGB: c.MinimumFreeGB,
		Logger:        c.Logger,
	}
}

// Create initializes a new database at config.Path.
func Create(config Config) (*DB, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	store, err := adapter.Create(config.storeConfig())
	if err != nil {
		return nil, err
	}
	return &DB{log: config.Logger, store: store}, nil
}

// Open opens an existing database at config.Path.
func Open(config Config) (*DB, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	store, err := adapter.Open(config.storeConfig())
	if err != nil {
		return nil, err
	}
	return &DB{log: config.Logger, store: store}, nil
}

// Close syncs and closes the database.
func (db *DB) Close() error {
	return db.store.Close()
}

// Store exposes the transactional adapter for callers that need to group
// several operations into one transaction.
func (db *DB) Store() *adapter.DB {
	return db.store
}

// CreateEntry creates the entry addressed by path under its (already
// existing) parent, allocating the next available id, inside one read-write
// transaction. The root cannot be created; it exists implicitly.
func (db *DB) CreateEntry(path string, objectclass types.ObjectClass) (types.Entry, error) {
	p, err := types.ParsePath(path)
	if err != nil {
		return types.Entry{}, err
	}
	if p.IsRoot() {
		return types.Entry{}, fmt.Errorf("%w: root entry is implicit", adapter.ErrEntryAlreadyExists)
	}

	txn := db.store.RwTransaction()
	defer txn.Discard()

	parent, err := db.store.FindNode(txn, p.Parent())
	if err != nil {
		return types.Entry{}, err
	}

	id, err := db.store.NextAvailableID(txn)
	if err != nil {
		return types.Entry{}, err
	}

	entry, err := db.store.AddEntry(txn, id, parent.Id, p.Base(), objectclass)
	if err != nil {
		return types.Entry{}, err
	}

	if err := txn.Commit(); err != nil {
		return types.Entry{}, err
	}

	db.log.WithFields(logrus.Fields{
		"path":        path,
		"id":          entry.Node.Id,
		"objectclass": objectclass.String(),
	}).Debug("entry created")

	return entry, nil
}

// FindEntry resolves path in a fresh read-only snapshot.
func (db *DB) FindEntry(path string) (types.Entry, error) {
	p, err := types.ParsePath(path)
	if err != nil {
		return types.Entry{}, err
	}

	txn := db.store.RoTransaction()
	defer txn.Discard()

	return db.store.FindEntry(txn, p)
}

// AppendBlock appends one block to the audit log in its own transaction. The
// block must carry an assigned id.
func (db *DB) AppendBlock(block types.Block) error {
	txn := db.store.RwTransaction()
	defer txn.Discard()

	if err := db.store.AddBlock(txn, block); err != nil {
		return err
	}
	return txn.Commit()
}

// Block reads one block back from the log.
func (db *DB) Block(id types.Id) (types.Block, error) {
	txn := db.store.RoTransaction()
	defer txn.Discard()

	return db.store.GetBlock(txn, id)
}

// VerifyCredential checks a secret against the credential record stored as the
// payload of the log block with the given id. The result never reveals why a
// mismatch happened.
func (db *DB) VerifyCredential(id types.Id, secret string) (bool, error) {
	block, err := db.Block(id)
	if err != nil {
		return false, err
	}

	credential, err := wire.DecodeCredential(block.Payload)
	if err != nil {
		return false, fmt.Errorf("%w: credential block %d: %v", adapter.ErrDbCorrupt, id, err)
	}

	return password.Verify(credential.Alg, credential.Salt, secret, credential.Derived), nil
}

// ExportLog streams the whole block log to w as an xz-compressed backup.
func (db *DB) ExportLog(w io.Writer) error {
	return backup.Export(db.store, w)
}

// ImportLog replays a backup produced by ExportLog.
func (db *DB) ImportLog(r io.Reader) error {
	return backup.Import(db.store, r)
}

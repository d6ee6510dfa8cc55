package adapter

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"

	"github.com/arbordb/arbor/internal/wire"
	"github.com/arbordb/arbor/pkg/types"
)

var log = logrus.New()

// metaIdSeqKey stores the id high-water mark: the largest node id ever written.
// Keeping it as an explicit counter decouples id allocation from the shape of
// the node index.
var metaIdSeqKey = []byte("idseq")

// StoreConfig configures a store environment.
type StoreConfig struct {
	// Path is the data directory.
	Path string
	// MinimumFreeGB refuses to create or open the store when the filesystem
	// has less free space than this. Zero disables the check.
	MinimumFreeGB uint
	// Logger is optional; a default logrus logger is used when nil.
	Logger *logrus.Logger
}

// DB is the badger-backed store: three logical tables (blocks, nodes, entries)
// plus internal metadata, all inside one environment.
type DB struct {
	config   StoreConfig
	badgerDB *badger.DB

	// writeMu serializes read-write transactions: at most one writer is open
	// at a time, released on commit or discard.
	writeMu sync.Mutex
}

// Create initializes a new store environment at config.Path. The directory is
// created with owner-only permissions.
func Create(config StoreConfig) (*DB, error) {
	if config.Logger != nil {
		log = config.Logger
	}

	if err := os.MkdirAll(config.Path, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbCreate, err)
	}

	if err := checkFreeSpace(config.Path, config.MinimumFreeGB); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbCreate, err)
	}

	db, err := openBadger(config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbCreate, err)
	}

	log.WithFields(logrus.Fields{
		"path": config.Path,
	}).Info("store environment created")

	return &DB{config: config, badgerDB: db}, nil
}

// Open opens an existing store environment at config.Path.
func Open(config StoreConfig) (*DB, error) {
	if config.Logger != nil {
		log = config.Logger
	}

	if _, err := os.Stat(config.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbOpen, err)
	}

	if err := checkFreeSpace(config.Path, config.MinimumFreeGB); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbOpen, err)
	}

	db, err := openBadger(config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDbOpen, err)
	}

	return &DB{config: config, badgerDB: db}, nil
}

func openBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return badger.Open(opts)
}

func checkFreeSpace(path string, minimumFreeGB uint) error {
	if minimumFreeGB == 0 {
		return nil
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return fmt.Errorf("checking free space for %s: %v", path, err)
	}

	log.WithFields(logrus.Fields{
		"path":       path,
		"total (GB)": fmt.Sprintf("%.2f", float64(usage.Total)/1e9),
		"free (GB)":  fmt.Sprintf("%.2f", float64(usage.Free)/1e9),
	}).Info("disk usage")

	if usage.Free < uint64(minimumFreeGB)*1e9 {
		return fmt.Errorf("%s has %d bytes free, need %d GB", path, usage.Free, minimumFreeGB)
	}
	return nil
}

// Close syncs and closes the underlying store.
func (d *DB) Close() error {
	if err := d.badgerDB.Sync(); err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}
	return d.badgerDB.Close()
}

// RoTransaction begins a read-only transaction against an immutable snapshot.
// Readers never block, and are never blocked by, the writer.
func (d *DB) RoTransaction() Transaction {
	return &roTxn{txn: d.badgerDB.NewTransaction(false)}
}

// RwTransaction begins the store's single read-write transaction, blocking
// until any previous writer has committed or discarded.
func (d *DB) RwTransaction() WriteTransaction {
	d.writeMu.Lock()
	return &rwTxn{roTxn: roTxn{txn: d.badgerDB.NewTransaction(true)}, db: d}
}

type roTxn struct {
	txn  *badger.Txn
	done bool
}

func (t *roTxn) check() {
	if t.done {
		panic("adapter: transaction used after commit")
	}
}

func (t *roTxn) Get(table Table, key []byte) ([]byte, error) {
	t.check()

	item, err := t.txn.Get(storeKey(table, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrTransaction, err)
	}
	return item.ValueCopy(nil)
}

func (t *roTxn) Find(table Table, key []byte, pred func([]byte) bool) ([]byte, error) {
	t.check()

	prefix := storeKey(table, key)
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		value, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: cursor: %v", ErrTransaction, err)
		}
		if pred(value) {
			return value, nil
		}
	}
	return nil, ErrNotFound
}

func (t *roTxn) Commit() error {
	t.check()
	t.done = true
	// Read-only transactions have nothing to make durable.
	t.txn.Discard()
	return nil
}

func (t *roTxn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Discard()
}

type rwTxn struct {
	roTxn
	db *DB
}

func (t *rwTxn) Put(table Table, key, value []byte) error {
	t.check()

	if err := t.txn.Set(storeKey(table, key), value); err != nil {
		return fmt.Errorf("%w: %v", ErrDbWrite, err)
	}
	return nil
}

func (t *rwTxn) Commit() error {
	t.check()
	t.done = true
	defer t.db.writeMu.Unlock()

	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransaction, err)
	}
	return nil
}

func (t *rwTxn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Discard()
	t.db.writeMu.Unlock()
}

func storeKey(table Table, key []byte) []byte {
	return append([]byte(table), key...)
}

// nodeKey builds the multimap key for one child node: the parent id keys the
// run, the child id makes the stored key unique and orders the run by
// allocation order.
func nodeKey(parentId, id types.Id) []byte {
	return append(parentId.Bytes(), id.Bytes()...)
}

// NextAvailableID returns the successor of the id high-water mark, or the
// root's successor for an empty namespace. Callers must allocate through this
// inside the read-write transaction that will add the entry.
func (d *DB) NextAvailableID(txn Transaction) (types.Id, error) {
	raw, err := txn.Get(Meta, metaIdSeqKey)
	if errors.Is(err, ErrNotFound) {
		return types.RootId.Next(), nil
	}
	if err != nil {
		return 0, err
	}

	last, err := types.IdFromBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: id high-water mark: %v", ErrDbCorrupt, err)
	}
	return last.Next(), nil
}

// AddEntry creates a Node {id, parentId, name} in the namespace and binds the
// objectclass to it in the entry table. It fails ErrEntryAlreadyExists if the
// id is taken or a sibling of the same name exists under parentId. The two
// table writes plus the high-water mark update are the only side effects.
func (d *DB) AddEntry(txn WriteTransaction, id, parentId types.Id, name string, objectclass types.ObjectClass) (types.Entry, error) {
	if _, err := txn.Get(Entries, id.Bytes()); !errors.Is(err, ErrNotFound) {
		if err != nil {
			return types.Entry{}, err
		}
		return types.Entry{}, fmt.Errorf("%w: id %d", ErrEntryAlreadyExists, id)
	}

	if _, err := d.FindChildNode(txn, parentId, name); !errors.Is(err, ErrNotFound) {
		if err != nil {
			return types.Entry{}, err
		}
		return types.Entry{}, fmt.Errorf("%w: %q under parent %d", ErrEntryAlreadyExists, name, parentId)
	}

	node := types.Node{Id: id, ParentId: parentId, Name: name}

	if err := txn.Put(Nodes, nodeKey(parentId, id), wire.EncodeNode(node)); err != nil {
		return types.Entry{}, err
	}

	if err := txn.Put(Entries, id.Bytes(), objectclass.Bytes()); err != nil {
		return types.Entry{}, err
	}

	if err := d.bumpIdSeq(txn, id); err != nil {
		return types.Entry{}, err
	}

	return types.Entry{Node: node, ObjectClass: objectclass}, nil
}

func (d *DB) bumpIdSeq(txn WriteTransaction, id types.Id) error {
	last := types.RootId
	raw, err := txn.Get(Meta, metaIdSeqKey)
	if err == nil {
		last, err = types.IdFromBytes(raw)
		if err != nil {
			return fmt.Errorf("%w: id high-water mark: %v", ErrDbCorrupt, err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if id <= last {
		return nil
	}
	return txn.Put(Meta, metaIdSeqKey, id.Bytes())
}

// FindChildNode scans parentId's duplicate run for the child named name.
func (d *DB) FindChildNode(txn Transaction, parentId types.Id, name string) (types.Node, error) {
	raw, err := txn.Find(Nodes, parentId.Bytes(), func(value []byte) bool {
		node, err := wire.DecodeNode(parentId, value)
		return err == nil && node.Name == name
	})
	if err != nil {
		return types.Node{}, err
	}

	node, err := wire.DecodeNode(parentId, raw)
	if err != nil {
		return types.Node{}, fmt.Errorf("%w: node under parent %d: %v", ErrDbCorrupt, parentId, err)
	}
	return node, nil
}

// FindNode resolves a path strictly root-to-leaf, failing ErrNotFound at the
// first missing component. The empty path resolves to the implicit root.
func (d *DB) FindNode(txn Transaction, path types.Path) (types.Node, error) {
	node := types.RootNode()
	for _, component := range path.Components {
		var err error
		node, err = d.FindChildNode(txn, node.Id, component)
		if err != nil {
			return types.Node{}, err
		}
	}
	return node, nil
}

// FindEntry resolves a path to its Entry. A resolved node with no entry row
// means the namespace and entry tables have diverged, which is ErrDbCorrupt,
// not a normal miss.
func (d *DB) FindEntry(txn Transaction, path types.Path) (types.Entry, error) {
	node, err := d.FindNode(txn, path)
	if err != nil {
		return types.Entry{}, err
	}

	raw, err := txn.Get(Entries, node.Id.Bytes())
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: node %d has no entry: %v", ErrDbCorrupt, node.Id, err)
	}

	objectclass, err := types.ObjectClassFromBytes(raw)
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: entry %d: %v", ErrDbCorrupt, node.Id, err)
	}

	return types.Entry{Node: node, ObjectClass: objectclass}, nil
}

// AddBlock appends a block to the log. The caller must have assigned the
// block's id; an unset id is a precondition violation and panics. A block id
// that is already stored fails ErrEntryAlreadyExists, which is the sole
// enforcement of the log's append-only property.
func (d *DB) AddBlock(txn WriteTransaction, block types.Block) error {
	if block.Id == 0 {
		panic("adapter: block id unset")
	}

	serialized := wire.EncodeBlock(block)

	_, err := txn.Get(Blocks, block.Id.Bytes())
	if err == nil {
		return fmt.Errorf("%w: block %d", ErrEntryAlreadyExists, block.Id)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	return txn.Put(Blocks, block.Id.Bytes(), serialized)
}

// GetBlock reads one block back from the log.
func (d *DB) GetBlock(txn Transaction, id types.Id) (types.Block, error) {
	raw, err := txn.Get(Blocks, id.Bytes())
	if err != nil {
		return types.Block{}, err
	}

	block, err := wire.DecodeBlock(raw)
	if err != nil {
		return types.Block{}, fmt.Errorf("%w: block %d: %v", ErrDbCorrupt, id, err)
	}
	return block, nil
}

// ForEachBlock visits every stored block in id order, passing the raw
// serialized form. Used by the backup layer to stream the whole log.
func (d *DB) ForEachBlock(fn func(id types.Id, raw []byte) error) error {
	return d.badgerDB.View(func(txn *badger.Txn) error {
		prefix := []byte(Blocks)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id, err := types.IdFromBytes(item.Key()[len(prefix):])
			if err != nil {
				return fmt.Errorf("%w: block key: %v", ErrDbCorrupt, err)
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("%w: cursor: %v", ErrTransaction, err)
			}
			if err := fn(id, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

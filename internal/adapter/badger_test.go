package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordb/arbor/internal/adapter"
	"github.com/arbordb/arbor/pkg/types"
)

func createDatabase(t *testing.T) *adapter.DB {
	t.Helper()

	db, err := adapter.Create(adapter.StoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func exampleBlock(id types.Id) types.Block {
	return types.Block{
		Id:      id,
		Payload: []byte("example block payload"),
		Witness: types.Witness{
			Signatures: []types.Signature{
				{Signer: []byte("signer-1"), Value: []byte("signature-bytes")},
			},
		},
	}
}

func TestDuplicateBlock(t *testing.T) {
	db := createDatabase(t)
	block := exampleBlock(1)

	txn := db.RwTransaction()
	require.NoError(t, db.AddBlock(txn, block))
	require.NoError(t, txn.Commit())

	txn = db.RwTransaction()
	defer txn.Discard()
	err := db.AddBlock(txn, block)
	assert.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)
}

func TestDuplicateBlockKeepsOriginalBytes(t *testing.T) {
	db := createDatabase(t)

	original := exampleBlock(7)
	txn := db.RwTransaction()
	require.NoError(t, db.AddBlock(txn, original))
	require.NoError(t, txn.Commit())

	tampered := original
	tampered.Payload = []byte("rewritten history")

	txn = db.RwTransaction()
	err := db.AddBlock(txn, tampered)
	assert.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)
	txn.Discard()

	ro := db.RoTransaction()
	defer ro.Discard()
	stored, err := db.GetBlock(ro, 7)
	require.NoError(t, err)
	assert.Equal(t, original.Payload, stored.Payload)
}

func TestAddBlockWithoutIdPanics(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	defer txn.Discard()

	assert.Panics(t, func() {
		db.AddBlock(txn, types.Block{Payload: []byte("no id assigned")})
	})
}

func TestEntryLookup(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()

	domainId, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, domainId, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)

	hostsId := domainId.Next()
	_, err = db.AddEntry(txn, hostsId, domainId, "hosts", types.ObjectClassOu)
	require.NoError(t, err)

	hostId := hostsId.Next()
	_, err = db.AddEntry(txn, hostId, hostsId, "master.example.com", types.ObjectClassHost)
	require.NoError(t, err)

	require.NoError(t, txn.Commit())

	ro := db.RoTransaction()
	defer ro.Discard()

	path, err := types.ParsePath("/example.com/hosts/master.example.com")
	require.NoError(t, err)

	entry, err := db.FindEntry(ro, path)
	require.NoError(t, err)
	assert.Equal(t, "master.example.com", entry.Node.Name)
	assert.Equal(t, hostId, entry.Node.Id)
	assert.Equal(t, types.ObjectClassHost, entry.ObjectClass)
}

func TestDuplicateEntryId(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	defer txn.Discard()

	domainId, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, domainId, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)

	_, err = db.AddEntry(txn, domainId, types.RootId, "another.com", types.ObjectClassDomain)
	assert.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)
}

func TestDuplicateEntryName(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	defer txn.Discard()

	domainId, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, domainId, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)

	_, err = db.AddEntry(txn, domainId.Next(), types.RootId, "example.com", types.ObjectClassDomain)
	assert.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)
}

func TestFailedAddLeavesStoreUnchanged(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	id, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, id, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	// A transaction dropped after a failed call stages nothing.
	txn = db.RwTransaction()
	_, err = db.AddEntry(txn, id, types.RootId, "other.com", types.ObjectClassDomain)
	require.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)
	txn.Discard()

	ro := db.RoTransaction()
	defer ro.Discard()

	path, err := types.ParsePath("/example.com")
	require.NoError(t, err)
	entry, err := db.FindEntry(ro, path)
	require.NoError(t, err)
	assert.Equal(t, id, entry.Node.Id)

	otherPath, err := types.ParsePath("/other.com")
	require.NoError(t, err)
	_, err = db.FindEntry(ro, otherPath)
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestNextAvailableIDMonotonic(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()

	id, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	assert.Equal(t, types.RootId.Next(), id)

	_, err = db.AddEntry(txn, id, types.RootId, "a", types.ObjectClassDomain)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	txn = db.RwTransaction()
	defer txn.Discard()

	next, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	assert.Equal(t, id.Next(), next)
}

func TestFindNodeMissingComponent(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	id, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, id, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	ro := db.RoTransaction()
	defer ro.Discard()

	path, err := types.ParsePath("/example.com/missing/deeper")
	require.NoError(t, err)
	_, err = db.FindNode(ro, path)
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestSameNameUnderDifferentParents(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()

	aId, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, aId, types.RootId, "a.example.com", types.ObjectClassDomain)
	require.NoError(t, err)

	bId := aId.Next()
	_, err = db.AddEntry(txn, bId, types.RootId, "b.example.com", types.ObjectClassDomain)
	require.NoError(t, err)

	// "hosts" is allowed under both domains; sibling uniqueness is scoped to
	// one parent.
	_, err = db.AddEntry(txn, bId.Next(), aId, "hosts", types.ObjectClassOu)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, bId.Next().Next(), bId, "hosts", types.ObjectClassOu)
	require.NoError(t, err)

	require.NoError(t, txn.Commit())

	ro := db.RoTransaction()
	defer ro.Discard()

	node, err := db.FindChildNode(ro, aId, "hosts")
	require.NoError(t, err)
	assert.Equal(t, aId, node.ParentId)
}

func TestTransactionUseAfterCommitPanics(t *testing.T) {
	db := createDatabase(t)

	txn := db.RwTransaction()
	require.NoError(t, txn.Commit())

	assert.Panics(t, func() {
		txn.Get(adapter.Entries, types.RootId.Bytes())
	})
}

func TestReadSnapshotIgnoresLaterWrites(t *testing.T) {
	db := createDatabase(t)

	ro := db.RoTransaction()
	defer ro.Discard()

	txn := db.RwTransaction()
	id, err := db.NextAvailableID(txn)
	require.NoError(t, err)
	_, err = db.AddEntry(txn, id, types.RootId, "example.com", types.ObjectClassDomain)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	path, err := types.ParsePath("/example.com")
	require.NoError(t, err)
	_, err = db.FindEntry(ro, path)
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := adapter.Open(adapter.StoreConfig{Path: "/nonexistent/arbor-store"})
	assert.ErrorIs(t, err, adapter.ErrDbOpen)
}

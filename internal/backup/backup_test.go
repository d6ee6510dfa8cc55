package backup_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordb/arbor/internal/adapter"
	"github.com/arbordb/arbor/internal/backup"
	"github.com/arbordb/arbor/pkg/types"
)

func createDatabase(t *testing.T) *adapter.DB {
	t.Helper()

	db, err := adapter.Create(adapter.StoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func appendBlocks(t *testing.T, db *adapter.DB, count int) []types.Block {
	t.Helper()

	blocks := make([]types.Block, 0, count)
	txn := db.RwTransaction()
	for i := 1; i <= count; i++ {
		block := types.Block{
			Id:      types.Id(i),
			Payload: []byte(fmt.Sprintf("payload %d", i)),
		}
		require.NoError(t, db.AddBlock(txn, block))
		blocks = append(blocks, block)
	}
	require.NoError(t, txn.Commit())
	return blocks
}

func TestExportImportRoundTrip(t *testing.T) {
	source := createDatabase(t)
	blocks := appendBlocks(t, source, 5)

	var exported bytes.Buffer
	require.NoError(t, backup.Export(source, &exported))

	target := createDatabase(t)
	require.NoError(t, backup.Import(target, &exported))

	ro := target.RoTransaction()
	defer ro.Discard()
	for _, want := range blocks {
		got, err := target.GetBlock(ro, want.Id)
		require.NoError(t, err)
		assert.Equal(t, want.Payload, got.Payload)
	}
}

func TestExportEmptyLog(t *testing.T) {
	source := createDatabase(t)

	var exported bytes.Buffer
	require.NoError(t, backup.Export(source, &exported))

	target := createDatabase(t)
	require.NoError(t, backup.Import(target, &exported))
}

func TestImportRefusesIdCollision(t *testing.T) {
	source := createDatabase(t)
	appendBlocks(t, source, 3)

	var exported bytes.Buffer
	require.NoError(t, backup.Export(source, &exported))

	target := createDatabase(t)
	txn := target.RwTransaction()
	require.NoError(t, target.AddBlock(txn, types.Block{Id: 2, Payload: []byte("already here")}))
	require.NoError(t, txn.Commit())

	err := backup.Import(target, &exported)
	assert.ErrorIs(t, err, adapter.ErrEntryAlreadyExists)

	// The aborted import restored nothing.
	ro := target.RoTransaction()
	defer ro.Discard()
	_, err = target.GetBlock(ro, 1)
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestImportGarbage(t *testing.T) {
	target := createDatabase(t)

	err := backup.Import(target, bytes.NewReader([]byte("not an xz stream")))
	assert.Error(t, err)
}

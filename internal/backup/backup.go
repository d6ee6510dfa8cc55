// Package backup streams the append-only block log out of and back into a
// store as an xz-compressed sequence of length-prefixed wire records.
package backup

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/arbordb/arbor/internal/adapter"
	"github.com/arbordb/arbor/internal/wire"
	"github.com/arbordb/arbor/pkg/types"
)

// Export writes every block, in id order, to w. The stored serialized form is
// streamed as-is; nothing is re-encoded.
func Export(db *adapter.DB, w io.Writer) error {
	xzWriter, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("backup: opening xz stream: %w", err)
	}

	var lenBuf [binary.MaxVarintLen64]byte
	err = db.ForEachBlock(func(_ types.Id, raw []byte) error {
		n := binary.PutUvarint(lenBuf[:], uint64(len(raw)))
		if _, err := xzWriter.Write(lenBuf[:n]); err != nil {
			return fmt.Errorf("backup: writing record length: %w", err)
		}
		if _, err := xzWriter.Write(raw); err != nil {
			return fmt.Errorf("backup: writing record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("backup: closing xz stream: %w", err)
	}
	return nil
}

// Import replays an exported log into db inside one read-write transaction.
// Blocks whose ids are already present fail ErrEntryAlreadyExists and abort
// the whole import; nothing is partially restored.
func Import(db *adapter.DB, r io.Reader) error {
	xzReader, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("backup: opening xz stream: %w", err)
	}
	buffered := bufio.NewReader(xzReader)

	txn := db.RwTransaction()
	defer txn.Discard()

	for {
		length, err := binary.ReadUvarint(buffered)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("backup: reading record length: %w", err)
		}

		raw := make([]byte, length)
		if _, err := io.ReadFull(buffered, raw); err != nil {
			return fmt.Errorf("backup: reading record: %w", err)
		}

		block, err := wire.DecodeBlock(raw)
		if err != nil {
			return fmt.Errorf("backup: %w: %v", adapter.ErrSerialize, err)
		}

		if err := db.AddBlock(txn, block); err != nil {
			return err
		}
	}

	return txn.Commit()
}

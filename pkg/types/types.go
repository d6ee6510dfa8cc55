// Package types holds the record types shared across the store: identifiers,
// namespace nodes and entries, audit-log blocks and their witnesses.
package types

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/arbordb/arbor/internal/objecthash"
)

// IdSize is the width of a serialized Id in bytes.
const IdSize = 8

// Id is a durable, order-preserving identifier for a namespace node. Ids are
// big-endian encoded so that lexicographic byte order matches numeric order.
type Id uint64

// RootId is the reserved identifier of the namespace root. Allocated ids are
// strictly greater and never reused.
const RootId Id = 0

// Bytes returns the fixed-width big-endian encoding of the id.
func (id Id) Bytes() []byte {
	b := make([]byte, IdSize)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// IdFromBytes decodes a fixed-width big-endian id.
func IdFromBytes(b []byte) (Id, error) {
	if len(b) != IdSize {
		return 0, fmt.Errorf("types: id must be %d bytes, got %d", IdSize, len(b))
	}
	return Id(binary.BigEndian.Uint64(b)), nil
}

// Next returns the successor id.
func (id Id) Next() Id {
	return id + 1
}

// ObjectHash implements the canonical hasher contract.
func (id Id) ObjectHash() objecthash.Digest {
	return objecthash.Uint(uint64(id))
}

// Node is one element of the hierarchical namespace. Every non-root node's
// ParentId references an existing node, and no two siblings share a name.
type Node struct {
	Id       Id
	ParentId Id
	Name     string
}

// RootNode returns the implicit root of the namespace. The root has no parent
// and no name, and is never stored.
func RootNode() Node {
	return Node{Id: RootId, ParentId: RootId, Name: ""}
}

// Entry is a typed directory object attached to a Node.
type Entry struct {
	Node        Node
	ObjectClass ObjectClass
}

// Path is a slash-delimited address of a Node, resolved root-to-leaf.
type Path struct {
	Components []string
}

// ParsePath parses an absolute slash-delimited path. "/" and "" address the
// root; empty interior components are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" || s == "/" {
		return Path{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Path{}, fmt.Errorf("types: path %q is not absolute", s)
	}
	components := strings.Split(s[1:], "/")
	for _, c := range components {
		if c == "" {
			return Path{}, fmt.Errorf("types: path %q has an empty component", s)
		}
	}
	return Path{Components: components}, nil
}

func (p Path) String() string {
	return "/" + strings.Join(p.Components, "/")
}

// IsRoot reports whether the path addresses the namespace root.
func (p Path) IsRoot() bool {
	return len(p.Components) == 0
}

// Parent returns the path with the final component removed. The parent of the
// root is the root.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return p
	}
	return Path{Components: p.Components[:len(p.Components)-1]}
}

// Base returns the final component, or "" for the root.
func (p Path) Base() string {
	if p.IsRoot() {
		return ""
	}
	return p.Components[len(p.Components)-1]
}

// Signature is one signer's attestation over a canonical hash. The signer
// identity and signature bytes are opaque to the store; an external signing
// capability produces and verifies them.
type Signature struct {
	Signer []byte
	Value  []byte
}

// ObjectHash implements the canonical hasher contract.
func (s Signature) ObjectHash() objecthash.Digest {
	return objecthash.Record(map[string]objecthash.Digest{
		"signer": objecthash.Bytes(s.Signer),
		"value":  objecthash.Bytes(s.Value),
	})
}

// Witness is a bundle of signatures attesting the canonical hash of the object
// it accompanies. A witness is itself hashable, which allows layered
// co-signing: a second witness may attest the first one's digest.
type Witness struct {
	Signatures []Signature
}

// ObjectHash implements the canonical hasher contract. Signature order is
// significant.
func (w Witness) ObjectHash() objecthash.Digest {
	digests := make([]objecthash.Digest, len(w.Signatures))
	for i, sig := range w.Signatures {
		digests[i] = sig.ObjectHash()
	}
	return objecthash.Record(map[string]objecthash.Digest{
		"signatures": objecthash.List(digests),
	})
}

// Block is one record of the append-only audit log. Once stored under an id a
// block is immutable forever. Id 0 means "unset": the caller must assign an id
// before the block can be appended.
type Block struct {
	Id      Id
	Payload []byte
	Witness Witness
}

// ObjectHash implements the canonical hasher contract. The digest covers the
// id and payload only, so attaching a witness after the fact does not change
// the hash its signatures attest.
func (b Block) ObjectHash() objecthash.Digest {
	return objecthash.Record(map[string]objecthash.Digest{
		"id":      b.Id.ObjectHash(),
		"payload": objecthash.Bytes(b.Payload),
	})
}

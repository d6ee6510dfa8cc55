// Package wire converts records to and from their durable byte form using the
// protobuf wire format. Encoding is deterministic: fields are emitted in field
// number order, so equal records always produce equal bytes. Authenticity does
// not depend on that, though, since signatures attest canonical object hashes
// rather than these encodings.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arbordb/arbor/pkg/types"
)

// Node values are stored under a key derived from the parent id, so only the
// node's own id and name go on the wire.
//
//	1: id      varint
//	2: name    bytes
func EncodeNode(n types.Node) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Id))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, n.Name)
	return b
}

// DecodeNode decodes a stored node value. The parent id comes from the caller
// because it is part of the key, not the value.
func DecodeNode(parentId types.Id, b []byte) (types.Node, error) {
	n := types.Node{ParentId: parentId}
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return types.Node{}, fmt.Errorf("wire: node tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return types.Node{}, fmt.Errorf("wire: node id: %w", protowire.ParseError(m))
			}
			n.Id = types.Id(v)
			b = b[m:]
		case num == 2 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Node{}, fmt.Errorf("wire: node name: %w", protowire.ParseError(m))
			}
			n.Name = string(v)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.Node{}, fmt.Errorf("wire: node field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return n, nil
}

// Signature wire form:
//
//	1: signer  bytes
//	2: value   bytes
func encodeSignature(s types.Signature) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Signer)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, s.Value)
	return b
}

func decodeSignature(b []byte) (types.Signature, error) {
	var s types.Signature
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return types.Signature{}, fmt.Errorf("wire: signature tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Signature{}, fmt.Errorf("wire: signature signer: %w", protowire.ParseError(m))
			}
			s.Signer = append([]byte(nil), v...)
			b = b[m:]
		case num == 2 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Signature{}, fmt.Errorf("wire: signature value: %w", protowire.ParseError(m))
			}
			s.Value = append([]byte(nil), v...)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.Signature{}, fmt.Errorf("wire: signature field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return s, nil
}

// Witness wire form:
//
//	1: signatures  repeated message
func EncodeWitness(w types.Witness) []byte {
	var b []byte
	for _, sig := range w.Signatures {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSignature(sig))
	}
	return b
}

func DecodeWitness(b []byte) (types.Witness, error) {
	var w types.Witness
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return types.Witness{}, fmt.Errorf("wire: witness tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Witness{}, fmt.Errorf("wire: witness signature: %w", protowire.ParseError(m))
			}
			sig, err := decodeSignature(v)
			if err != nil {
				return types.Witness{}, err
			}
			w.Signatures = append(w.Signatures, sig)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.Witness{}, fmt.Errorf("wire: witness field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return w, nil
}

// Block wire form:
//
//	1: id       varint
//	2: payload  bytes
//	3: witness  message
func EncodeBlock(blk types.Block) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blk.Id))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, blk.Payload)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, EncodeWitness(blk.Witness))
	return b
}

func DecodeBlock(b []byte) (types.Block, error) {
	var blk types.Block
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return types.Block{}, fmt.Errorf("wire: block tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return types.Block{}, fmt.Errorf("wire: block id: %w", protowire.ParseError(m))
			}
			blk.Id = types.Id(v)
			b = b[m:]
		case num == 2 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Block{}, fmt.Errorf("wire: block payload: %w", protowire.ParseError(m))
			}
			blk.Payload = append([]byte(nil), v...)
			b = b[m:]
		case num == 3 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Block{}, fmt.Errorf("wire: block witness: %w", protowire.ParseError(m))
			}
			w, err := DecodeWitness(v)
			if err != nil {
				return types.Block{}, err
			}
			blk.Witness = w
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.Block{}, fmt.Errorf("wire: block field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return blk, nil
}

// Credential wire form:
//
//	1: alg      varint
//	2: salt     bytes
//	3: derived  bytes
func EncodeCredential(c types.Credential) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.Alg))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, c.Salt)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, c.Derived)
	return b
}

func DecodeCredential(b []byte) (types.Credential, error) {
	var c types.Credential
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return types.Credential{}, fmt.Errorf("wire: credential tag: %w", protowire.ParseError(tagLen))
		}
		b = b[tagLen:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return types.Credential{}, fmt.Errorf("wire: credential alg: %w", protowire.ParseError(m))
			}
			c.Alg = types.PasswordAlg(v)
			b = b[m:]
		case num == 2 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Credential{}, fmt.Errorf("wire: credential salt: %w", protowire.ParseError(m))
			}
			c.Salt = append([]byte(nil), v...)
			b = b[m:]
		case num == 3 && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return types.Credential{}, fmt.Errorf("wire: credential derived: %w", protowire.ParseError(m))
			}
			c.Derived = append([]byte(nil), v...)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return types.Credential{}, fmt.Errorf("wire: credential field %d: %w", num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return c, nil
}

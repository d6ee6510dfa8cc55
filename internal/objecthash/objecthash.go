// Package objecthash computes canonical, serialization-independent digests of
// structured values. Two values with the same logical content hash identically
// no matter how they were encoded on the wire, so signatures over a digest
// survive re-encoding the record with a different serializer.
//
// Every value is hashed as SHA-256 over a one-byte type tag followed by the
// value's canonical byte form:
//
//	'i'  integer, decimal ASCII
//	'u'  unicode string, UTF-8 bytes
//	'r'  raw byte sequence
//	'l'  ordered list, concatenation of element digests in order
//	's'  unordered set, concatenation of element digests sorted lexicographically
//	'd'  record, concatenation of (field-name digest, field-value digest)
//	     pairs sorted lexicographically
package objecthash

import (
	"bytes"
	"crypto/sha256"
	"sort"
	"strconv"
)

// DigestSize is the size of a canonical digest in bytes.
const DigestSize = sha256.Size

// Digest is the canonical hash of a structured value.
type Digest [DigestSize]byte

// Hashable is implemented by values that have a canonical structural digest.
type Hashable interface {
	ObjectHash() Digest
}

func tagged(tag byte, data []byte) Digest {
	h := sha256.New()
	h.Write([]byte{tag})
	h.Write(data)
	var d Digest
	h.Sum(d[:0])
	return d
}

// Int hashes a signed integer.
func Int(v int64) Digest {
	return tagged('i', []byte(strconv.FormatInt(v, 10)))
}

// Uint hashes an unsigned integer.
func Uint(v uint64) Digest {
	return tagged('i', []byte(strconv.FormatUint(v, 10)))
}

// String hashes a unicode string.
func String(s string) Digest {
	return tagged('u', []byte(s))
}

// Bytes hashes a raw byte sequence.
func Bytes(b []byte) Digest {
	return tagged('r', b)
}

// List hashes an ordered sequence of digests. Order matters.
func List(items []Digest) Digest {
	var buf bytes.Buffer
	for _, d := range items {
		buf.Write(d[:])
	}
	return tagged('l', buf.Bytes())
}

// Set hashes an unordered collection of digests. Element digests are sorted
// before combining, so permuting the input leaves the result unchanged.
func Set(items []Digest) Digest {
	sorted := make([]Digest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	var buf bytes.Buffer
	for _, d := range sorted {
		buf.Write(d[:])
	}
	return tagged('s', buf.Bytes())
}

// Record hashes a mapping from field name to field digest. Adding, removing or
// renaming a field changes the result; field declaration order does not.
func Record(fields map[string]Digest) Digest {
	pairs := make([][]byte, 0, len(fields))
	for name, d := range fields {
		nameDigest := String(name)
		pair := make([]byte, 0, 2*DigestSize)
		pair = append(pair, nameDigest[:]...)
		pair = append(pair, d[:]...)
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i], pairs[j]) < 0
	})
	var buf bytes.Buffer
	for _, p := range pairs {
		buf.Write(p)
	}
	return tagged('d', buf.Bytes())
}

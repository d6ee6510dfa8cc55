// Package witness attaches and checks signature bundles over canonical object
// hashes. Signing itself is an external capability; this package only wires
// digests to signers and collects the results.
package witness

import (
	"fmt"

	"github.com/arbordb/arbor/internal/objecthash"
	"github.com/arbordb/arbor/pkg/types"
)

// Signer produces a signature over a canonical digest.
type Signer interface {
	Sign(digest objecthash.Digest) (types.Signature, error)
}

// Verifier checks one signature over a canonical digest.
type Verifier interface {
	Verify(digest objecthash.Digest, sig types.Signature) bool
}

// Attest computes the canonical hash of obj and collects one signature from
// each signer, in order. obj may be a Block or an existing Witness; the latter
// produces a layered co-signature over the first witness.
func Attest(obj objecthash.Hashable, signers ...Signer) (types.Witness, error) {
	return Cosign(types.Witness{}, obj, signers...)
}

// Cosign appends further signatures over obj's canonical hash to an existing
// witness. Earlier signatures are kept untouched and keep their order.
func Cosign(w types.Witness, obj objecthash.Hashable, signers ...Signer) (types.Witness, error) {
	digest := obj.ObjectHash()

	signatures := make([]types.Signature, 0, len(w.Signatures)+len(signers))
	signatures = append(signatures, w.Signatures...)

	for _, signer := range signers {
		sig, err := signer.Sign(digest)
		if err != nil {
			return types.Witness{}, fmt.Errorf("witness: signing: %w", err)
		}
		signatures = append(signatures, sig)
	}

	return types.Witness{Signatures: signatures}, nil
}

// Verify re-derives obj's canonical hash and checks every signature in w
// independently, returning one result per signature in order. One failed
// signature does not invalidate the others; the acceptance policy (all, or
// N-of-M) is the caller's decision.
func Verify(obj objecthash.Hashable, w types.Witness, verifier Verifier) []bool {
	digest := obj.ObjectHash()

	results := make([]bool, len(w.Signatures))
	for i, sig := range w.Signatures {
		results[i] = verifier.Verify(digest, sig)
	}
	return results
}

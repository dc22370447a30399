/*
Package merkle implements the leaf-fingerprint and binary Merkle tree rules
shared by the tally engine and the inclusion verifier.

The hash rules here are wire contract, not implementation detail: both the
engine that builds the tree and the verifier that walks a proof import this
package directly so the two sides can never drift apart.

TREE STRUCTURE:
  - Bottom-up, SHA-256 based, built over leaf fingerprints in submission order
  - Odd levels pair the last node with itself
  - Parent hashes the UTF-8 *text* of the two children's hex strings, not
    their raw 32-byte values
  - An empty batch commits to SHA-256("")
*/
package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// CanonicalYes and CanonicalNo are the only two plaintexts that contribute to
// a tally. Any other decrypted plaintext is a dummy.
const (
	CanonicalYes = "yes"
	CanonicalNo  = "no"
)

// LeafFingerprint computes SHA-256(utf8(voter) || le64(timestampNs) || utf8(ciphertextHex))
// and renders it as lowercase hex. The encoding is part of the wire contract:
// raw UTF-8 bytes for voter and ciphertext hex, 8-byte little-endian for the
// timestamp.
func LeafFingerprint(voter string, timestampNs uint64, ciphertextHex string) string {
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], timestampNs)

	h := sha256.New()
	h.Write([]byte(voter))
	h.Write(tsBuf[:])
	h.Write([]byte(ciphertextHex))
	return hex.EncodeToString(h.Sum(nil))
}

// ParentHash computes the parent of two sibling nodes identified by their
// lowercase hex fingerprints. The preimage is the concatenation of the two
// hex strings as text bytes, never the underlying 32-byte values - this is a
// deliberate wire-contract choice so that proofs can be verified without
// decoding back to binary at every step.
func ParentHash(leftHex, rightHex string) string {
	h := sha256.New()
	h.Write([]byte(leftHex))
	h.Write([]byte(rightHex))
	return hex.EncodeToString(h.Sum(nil))
}

// EmptyRoot is the root of a batch with no leaves: the lowercase hex of
// SHA-256 of the empty string.
func EmptyRoot() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}

// BuildTree reduces an ordered list of leaf fingerprints to a single root,
// applying the pair-duplicate-last-if-odd rule at every level independently.
// It returns the root and every intermediate level (level 0 is the leaves
// themselves) so that proofs can be derived afterwards with ProofForIndex.
func BuildTree(leaves []string) (root string, levels [][]string) {
	if len(leaves) == 0 {
		return EmptyRoot(), nil
	}

	levels = make([][]string, 0, 8)
	current := append([]string(nil), leaves...)
	levels = append(levels, current)

	for len(current) > 1 {
		next := make([]string, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			left := current[i]
			right := left
			if i+1 < len(current) {
				right = current[i+1]
			}
			next = append(next, ParentHash(left, right))
		}
		levels = append(levels, next)
		current = next
	}

	return current[0], levels
}

// ProofForIndex walks from level 0 up to just below the root, collecting one
// sibling fingerprint per level. No left/right side flags are emitted; the
// verifier recovers both orderings itself.
func ProofForIndex(levels [][]string, index int) []string {
	if len(levels) == 0 {
		return nil
	}

	proof := make([]string, 0, len(levels)-1)
	idx := index
	for level := 0; level < len(levels)-1; level++ {
		nodes := levels[level]
		siblingIdx := idx ^ 1
		if siblingIdx >= len(nodes) {
			// odd-length level: the last node pairs with itself
			siblingIdx = idx
		}
		proof = append(proof, nodes[siblingIdx])
		idx /= 2
	}
	return proof
}

/*
Package verifier implements the client-side inclusion check: given a leaf
fingerprint, a sibling-path proof, and a published Merkle root, decide
whether the leaf is a member of the committed batch.

The proof carries no left/right side flags, so Verify explores both
orderings at each level. Depth is ceil(log2(n)), so the 2^depth worst case
stays tractable well past 10,000 ballots.
*/
package verifier

import "github.com/zavodil/private-dao-ark/merkle"

// Verify checks leafHex against root by walking proof bottom-up, trying both
// possible child orderings at each step since no side flags are present.
func Verify(leafHex string, proof []string, rootHex string) bool {
	return verify(leafHex, proof, rootHex)
}

func verify(current string, proof []string, root string) bool {
	if len(proof) == 0 {
		return current == root
	}
	sibling := proof[0]
	rest := proof[1:]
	return verify(merkle.ParentHash(current, sibling), rest, root) ||
		verify(merkle.ParentHash(sibling, current), rest, root)
}

// ProofStep is the optional forward-compatible extension named in the spec:
// a sibling hash plus an explicit side flag, letting a verifier skip the
// dual-order search when the flag is known. Nothing in this engine emits
// ProofStep today; VerifyWithSides exists only so a future producer can add
// flags without breaking callers that still use the flag-free Verify.
type ProofStep struct {
	Sibling       string
	SiblingOnLeft bool
}

// VerifyWithSides is the side-flag variant of Verify. When SiblingOnLeft is
// true the sibling is hashed as the left child; otherwise as the right
// child. It still degrades to a single deterministic path per level, unlike
// the dual-try Verify.
func VerifyWithSides(leafHex string, proof []ProofStep, rootHex string) bool {
	current := leafHex
	for _, step := range proof {
		if step.SiblingOnLeft {
			current = merkle.ParentHash(step.Sibling, current)
		} else {
			current = merkle.ParentHash(current, step.Sibling)
		}
	}
	return current == rootHex
}

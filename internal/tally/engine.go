package tally

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/zavodil/private-dao-ark/merkle"
)

// Tally implements the full tally_votes algorithm: decrypt, reduce, count,
// build the Merkle commitment, and emit one proof per submitted ballot in
// input order. It never aborts on a per-record failure - a ballot that
// fails to decrypt or carries a non-canonical plaintext is simply excluded
// from the counts while its leaf still contributes to the tree.
func Tally(masterSecret []byte, daoID string, proposalID uint64, votes []BallotRecord) (*Result, error) {
	outcomes := decryptBatch(masterSecret, daoID, votes)
	chosen := reduceLatestPerVoter(votes, outcomes)

	var yesCount, noCount uint32
	for _, plaintext := range chosen {
		switch plaintext {
		case merkle.CanonicalYes:
			yesCount++
		case merkle.CanonicalNo:
			noCount++
		}
	}

	leaves := make([]string, len(votes))
	for i, v := range votes {
		leaves[i] = merkle.LeafFingerprint(v.Voter, v.TimestampNs, v.CiphertextHex)
	}

	root, levels := merkle.BuildTree(leaves)

	proofs := make([]Proof, len(votes))
	for i, v := range votes {
		proofs[i] = Proof{
			Voter:       v.Voter,
			VoteIndex:   i,
			VoteHash:    leaves[i],
			ProofPath:   merkle.ProofForIndex(levels, i),
			TimestampNs: v.TimestampNs,
		}
	}

	totalCounted := yesCount + noCount

	return &Result{
		ProposalID:   proposalID,
		YesCount:     yesCount,
		NoCount:      noCount,
		TotalCounted: totalCounted,
		MerkleRoot:   root,
		Proofs:       proofs,
		Attestation:  computeAttestation(proposalID, root, yesCount, noCount),
	}, nil
}

// computeAttestation binds the proposal id, root, and counts into the
// placeholder attestation string described by the spec: a fixed
// "attestation:" prefix over a SHA-256 digest, so that a future upgrade to
// real hardware attestation material can keep the same suffix shape.
func computeAttestation(proposalID uint64, root string, yesCount, noCount uint32) string {
	preimage := fmt.Sprintf("%s:%s:%s:%s",
		strconv.FormatUint(proposalID, 10),
		root,
		strconv.FormatUint(uint64(yesCount), 10),
		strconv.FormatUint(uint64(noCount), 10),
	)
	sum := sha256.Sum256([]byte(preimage))
	return "attestation:" + hex.EncodeToString(sum[:])
}

/*
Package tally orchestrates the engine's tally_votes action: decrypting a
ballot batch, applying latest-per-voter and dummy-filtering rules, building
the Merkle commitment, and emitting per-ballot inclusion proofs.
*/
package tally

import (
	"encoding/hex"
	"runtime"
	"sync"

	"github.com/zavodil/private-dao-ark/crypto"
	"github.com/zavodil/private-dao-ark/merkle"
)

// BallotRecord is one submitted ballot, decoded from the wire envelope.
type BallotRecord struct {
	Voter         string
	CiphertextHex string
	TimestampNs   uint64
}

// Proof is one ballot's inclusion proof alongside its identifying fields.
type Proof struct {
	Voter       string
	VoteIndex   int
	VoteHash    string
	ProofPath   []string
	TimestampNs uint64
}

// Result is the full output of a tally_votes invocation.
type Result struct {
	ProposalID   uint64
	YesCount     uint32
	NoCount      uint32
	TotalCounted uint32
	MerkleRoot   string
	Proofs       []Proof
	Attestation  string
}

type decryptOutcome struct {
	plaintext []byte
	ok        bool
}

// decryptBatch runs DeriveUserKeys + Decrypt for every record, preserving
// input order in the returned slice regardless of how the work is
// scheduled across cores.
func decryptBatch(masterSecret []byte, daoID string, votes []BallotRecord) []decryptOutcome {
	outcomes := make([]decryptOutcome, len(votes))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(votes) {
		workers = len(votes)
	}
	if workers < 1 {
		workers = 1
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = decryptOne(masterSecret, daoID, votes[i])
			}
		}()
	}
	for i := range votes {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return outcomes
}

func decryptOne(masterSecret []byte, daoID string, v BallotRecord) decryptOutcome {
	sk, _, err := crypto.DeriveUserKeys(masterSecret, daoID, v.Voter)
	if err != nil {
		return decryptOutcome{ok: false}
	}

	raw, err := hex.DecodeString(v.CiphertextHex)
	if err != nil {
		return decryptOutcome{ok: false}
	}

	plaintext, err := crypto.Decrypt(sk, raw)
	if err != nil {
		return decryptOutcome{ok: false}
	}

	return decryptOutcome{plaintext: plaintext, ok: true}
}

// reduceLatestPerVoter builds the voter -> chosen-plaintext mapping per the
// spec's latest-wins rule: only decrypted plaintexts equal to one of the two
// canonical tokens contribute, and among a voter's contributing records the
// one with the largest timestamp wins (ties keep the earlier record).
func reduceLatestPerVoter(votes []BallotRecord, outcomes []decryptOutcome) map[string]string {
	type chosen struct {
		plaintext string
		ts        uint64
	}
	mapping := make(map[string]chosen)

	for i, v := range votes {
		if !outcomes[i].ok {
			continue
		}
		plaintext := string(outcomes[i].plaintext)
		if plaintext != merkle.CanonicalYes && plaintext != merkle.CanonicalNo {
			continue
		}

		existing, present := mapping[v.Voter]
		if !present || v.TimestampNs > existing.ts {
			mapping[v.Voter] = chosen{plaintext: plaintext, ts: v.TimestampNs}
		}
	}

	result := make(map[string]string, len(mapping))
	for voter, c := range mapping {
		result[voter] = c.plaintext
	}
	return result
}

/*
Package action implements the engine's JSON wire protocol: decoding the
single request document on stdin, routing it to the right internal
component, and shaping the response envelope that goes to stdout.

The protocol is a tagged union keyed on the "action" field rather than a
dynamic "any" payload - unknown tags and malformed envelopes fall through
to the standard error response, and every successful response carries the
same {success, result, error} shape regardless of which action ran.
*/
package action

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zavodil/private-dao-ark/crypto"
	"github.com/zavodil/private-dao-ark/internal/attest"
	"github.com/zavodil/private-dao-ark/internal/tally"
)

// envelope is the shape shared by every request, before the action-specific
// fields are picked apart.
type envelope struct {
	Action string `json:"action"`
}

// Response is the single output shape emitted on stdout, success or not.
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
	Error   *string     `json:"error"`
}

func fail(reason string) Response {
	msg := reason
	return Response{Success: false, Result: nil, Error: &msg}
}

func ok(result interface{}) Response {
	return Response{Success: true, Result: result, Error: nil}
}

// derivePubkeyRequest is the decoded form of the "derive_pubkey" action.
type derivePubkeyRequest struct {
	Action      string `json:"action"`
	DaoAccount  string `json:"dao_account"`
	UserAccount string `json:"user_account"`
}

type derivePubkeyResult struct {
	Pubkey string `json:"pubkey"`
}

// ballotWire is one element of the "votes" array on a tally_votes request.
type ballotWire struct {
	User          string `json:"user"`
	EncryptedVote string `json:"encrypted_vote"`
	Timestamp     uint64 `json:"timestamp"`
	Nonce         string `json:"nonce"`
}

type tallyVotesRequest struct {
	Action     string       `json:"action"`
	DaoAccount string       `json:"dao_account"`
	ProposalID *uint64      `json:"proposal_id"`
	Votes      []ballotWire `json:"votes"`
}

type proofWire struct {
	Voter     string   `json:"voter"`
	VoteIndex uint32   `json:"vote_index"`
	VoteHash  string   `json:"vote_hash"`
	ProofPath []string `json:"proof_path"`
	Timestamp uint64   `json:"timestamp"`
}

type tallyVotesResult struct {
	ProposalID      uint64      `json:"proposal_id"`
	YesCount        uint32      `json:"yes_count"`
	NoCount         uint32      `json:"no_count"`
	TotalVotes      uint32      `json:"total_votes"`
	VotesMerkleRoot string      `json:"votes_merkle_root"`
	MerkleProofs    []proofWire `json:"merkle_proofs"`
	TeeAttestation  string      `json:"tee_attestation"`

	// AttestationSignatures is only populated when the operator has
	// configured an attestation signing key; it is additive and absent
	// from the wire shape otherwise.
	AttestationSignatures *signaturesWire `json:"attestation_signatures,omitempty"`
}

type signaturesWire struct {
	ClassicalAlgorithm string `json:"classical_algorithm"`
	ClassicalHex       string `json:"classical_hex"`
	DilithiumHex       string `json:"dilithium_hex,omitempty"`
}

// Dispatch decodes raw, routes it to the matching action, and returns the
// full response envelope. Expected failures come back as the standard error
// response; it does not recover panics itself, so a panic from inside a
// library call is left to the caller's recover.
func Dispatch(masterSecret []byte, signer *attest.Signer, raw []byte) Response {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fail("malformed request: " + err.Error())
	}

	switch env.Action {
	case "derive_pubkey":
		return dispatchDerivePubkey(masterSecret, raw)
	case "tally_votes":
		return dispatchTallyVotes(masterSecret, signer, raw)
	case "":
		return fail("missing required field: action")
	default:
		return fail(fmt.Sprintf("unknown action: %q", env.Action))
	}
}

func dispatchDerivePubkey(masterSecret []byte, raw []byte) Response {
	var req derivePubkeyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail("malformed derive_pubkey request: " + err.Error())
	}
	if req.DaoAccount == "" {
		return fail("missing required field: dao_account")
	}
	if req.UserAccount == "" {
		return fail("missing required field: user_account")
	}

	_, pk, err := crypto.DeriveUserKeys(masterSecret, req.DaoAccount, req.UserAccount)
	if err != nil {
		return fail("key derivation failed")
	}

	return ok(derivePubkeyResult{Pubkey: hex.EncodeToString(pk)})
}

func dispatchTallyVotes(masterSecret []byte, signer *attest.Signer, raw []byte) Response {
	var req tallyVotesRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fail("malformed tally_votes request: " + err.Error())
	}
	if req.DaoAccount == "" {
		return fail("missing required field: dao_account")
	}
	if req.ProposalID == nil {
		return fail("missing required field: proposal_id")
	}
	if req.Votes == nil {
		return fail("missing required field: votes")
	}

	votes := make([]tally.BallotRecord, len(req.Votes))
	for i, v := range req.Votes {
		votes[i] = tally.BallotRecord{
			Voter:         v.User,
			CiphertextHex: v.EncryptedVote,
			TimestampNs:   v.Timestamp,
		}
	}

	result, err := tally.Tally(masterSecret, req.DaoAccount, *req.ProposalID, votes)
	if err != nil {
		return fail("tally computation failed")
	}

	proofs := make([]proofWire, len(result.Proofs))
	for i, p := range result.Proofs {
		proofs[i] = proofWire{
			Voter:     p.Voter,
			VoteIndex: uint32(p.VoteIndex),
			VoteHash:  p.VoteHash,
			ProofPath: p.ProofPath,
			Timestamp: p.TimestampNs,
		}
	}

	out := tallyVotesResult{
		ProposalID:      result.ProposalID,
		YesCount:        result.YesCount,
		NoCount:         result.NoCount,
		TotalVotes:      result.TotalCounted,
		VotesMerkleRoot: result.MerkleRoot,
		MerkleProofs:    proofs,
		TeeAttestation:  result.Attestation,
	}

	if signer != nil {
		sig, err := signer.SignAttestation(result.Attestation)
		if err == nil {
			out.AttestationSignatures = &signaturesWire{
				ClassicalAlgorithm: sig.ClassicalAlgorithm,
				ClassicalHex:       hex.EncodeToString(sig.ClassicalSignature),
			}
			if sig.PQCSignature != nil {
				out.AttestationSignatures.DilithiumHex = hex.EncodeToString(sig.PQCSignature)
			}
		}
	}

	return ok(out)
}

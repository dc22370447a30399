package crypto

import (
	"crypto/ecdh"
	"crypto/elliptic"
	"errors"
	"fmt"
)

// curve is the standard prime-order curve used for both key derivation and
// hybrid encryption. P-256 is the curve the rest of this codebase's wire
// contract is built around: its compressed point encoding is exactly 33
// bytes, matching pk_user on the wire.
var curve = ecdh.P256()

// ErrKeyDerivationExhausted is returned if the retry loop in DeriveUserKeys
// never lands on a valid scalar. It is astronomically unlikely and exists
// only to bound the loop.
var ErrKeyDerivationExhausted = errors.New("crypto: key derivation did not converge")

// DeriveUserKeys deterministically recomputes a user's P-256 keypair from a
// 32-byte master secret, a DAO identifier and a user identifier. The same
// inputs always produce the same outputs; there is no storage involved.
//
// Per spec: info = "user:" + daoID + ":" + userID, HKDF-SHA256(masterSecret,
// salt=nil, info) -> 32 bytes, interpreted as a scalar mod the curve order.
// If the scalar is zero or out of range, a single counter byte is appended
// to the info string and the derivation is retried.
func DeriveUserKeys(masterSecret []byte, daoID, userID string) (sk []byte, pkCompressed []byte, err error) {
	baseInfo := "user:" + daoID + ":" + userID

	for counter := 0; counter < 256; counter++ {
		info := []byte(baseInfo)
		if counter > 0 {
			info = append(info, byte(counter))
		}

		candidate, err := deriveKey(masterSecret, nil, info, 32)
		if err != nil {
			return nil, nil, err
		}

		priv, err := curve.NewPrivateKey(candidate)
		if err != nil {
			// zero or out-of-range scalar: retry with the next counter byte
			continue
		}

		pub := priv.PublicKey().Bytes() // uncompressed: 0x04 || X || Y
		compressed, err := compressPoint(pub)
		if err != nil {
			return nil, nil, err
		}
		return candidate, compressed, nil
	}

	return nil, nil, ErrKeyDerivationExhausted
}

// compressPoint converts a standard-library uncompressed P-256 point
// (0x04 || X(32) || Y(32), 65 bytes) into its 33-byte compressed form.
func compressPoint(uncompressed []byte) ([]byte, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), uncompressed)
	if x == nil {
		return nil, fmt.Errorf("crypto: invalid P-256 point")
	}
	return elliptic.MarshalCompressed(elliptic.P256(), x, y), nil
}

// decompressPoint converts a 33-byte compressed P-256 point back into a
// crypto/ecdh public key.
func decompressPoint(compressed []byte) (*ecdh.PublicKey, error) {
	if len(compressed) != 33 {
		return nil, fmt.Errorf("crypto: compressed point must be 33 bytes, got %d", len(compressed))
	}
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), compressed)
	if x == nil {
		return nil, fmt.Errorf("crypto: invalid compressed P-256 point")
	}
	uncompressed := elliptic.Marshal(elliptic.P256(), x, y)
	return curve.NewPublicKey(uncompressed)
}

/*
Package secret manages the lifecycle of the single master secret the engine
receives through its environment: reading it exactly once, validating its
shape, and zeroing it before the process exits on every path.
*/
package secret

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// EnvVar is the only environment variable the engine reads.
const EnvVar = "DAO_MASTER_SECRET"

// Size is the required length of the decoded master secret, in bytes.
const Size = 32

// Load reads EnvVar, decodes it as 64 lowercase hex characters, and returns
// the 32-byte master secret. Absence or malformed input is a fatal setup
// error per the engine's error-handling design. Uppercase or mixed-case hex
// is rejected even though it decodes cleanly, because the wire contract
// fixes the encoding as lowercase.
func Load() ([]byte, error) {
	raw, ok := os.LookupEnv(EnvVar)
	if !ok || raw == "" {
		return nil, fmt.Errorf("secret: %s is not set", EnvVar)
	}
	if len(raw) != Size*2 {
		return nil, fmt.Errorf("secret: %s must be %d hex characters, got %d", EnvVar, Size*2, len(raw))
	}
	if strings.ToLower(raw) != raw {
		return nil, fmt.Errorf("secret: %s must be lowercase hex", EnvVar)
	}

	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("secret: %s is not valid hex: %w", EnvVar, err)
	}
	return decoded, nil
}

// Zero overwrites buf with zeroes in place. Call it via defer on every
// code path that holds the master secret, including error paths.
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

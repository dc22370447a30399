package main

import (
	"encoding/json"
	"io"
	"log"
	"os"

	"github.com/zavodil/private-dao-ark/internal/action"
	"github.com/zavodil/private-dao-ark/internal/attest"
	"github.com/zavodil/private-dao-ark/internal/secret"
)

func main() {
	os.Exit(run())
}

// run implements the engine's Start -> Processing -> Emit state machine: it
// reads the whole request from stdin, dispatches it, writes the response to
// stdout, and returns the process exit code. Every path - including a
// recovered internal panic - zeroes the master secret buffer before
// returning.
func run() int {
	masterSecret, err := secret.Load()
	if err != nil {
		log.Printf("[engine] failed to load master secret: %v", err)
		return emit(action.Response{Success: false, Error: strptr("fatal: could not load master secret")})
	}
	defer secret.Zero(masterSecret)

	signer, err := attest.LoadFromEnv()
	if err != nil {
		log.Printf("[engine] failed to load attestation signing key: %v", err)
		signer = nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Printf("[engine] failed to read stdin: %v", err)
		return emit(action.Response{Success: false, Error: strptr("fatal: could not read request")})
	}

	resp := dispatchRecovered(masterSecret, signer, raw)
	return emit(resp)
}

// dispatchRecovered isolates the recover() needed to satisfy the Fail
// transition described for unexpected internal conditions: a panic deep
// inside a library call must still produce a clean error envelope rather
// than crashing the guest process uncleanly.
func dispatchRecovered(masterSecret []byte, signer *attest.Signer, raw []byte) (resp action.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[engine] recovered from internal panic: %v", r)
			resp = action.Response{Success: false, Error: strptr("fatal: internal error")}
		}
	}()
	return action.Dispatch(masterSecret, signer, raw)
}

func emit(resp action.Response) int {
	encoded, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[engine] failed to encode response: %v", err)
		os.Stdout.WriteString(`{"success":false,"result":null,"error":"fatal: could not encode response"}`)
		return 1
	}
	os.Stdout.Write(encoded)
	os.Stdout.WriteString("\n")
	if !resp.Success {
		return 1
	}
	return 0
}

func strptr(s string) *string { return &s }

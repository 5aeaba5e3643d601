// Package jcs provides RFC 8785 canonical JSON for artifacts whose bytes
// must be reproducible: the comparison report is persisted in canonical form
// and run records are digested over it, so semantically equal JSON always
// hashes the same.
package jcs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON transforms encoded JSON into its RFC 8785 canonical form.
func CanonicalizeJSON(input []byte) ([]byte, error) {
	return jcs.Transform(input)
}

// MarshalCanonical encodes value and canonicalizes the result in one step.
func MarshalCanonical(value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(encoded)
}

// DigestJCS returns the sha256 hex digest of the input's canonical form.
// Two encodings of the same JSON value always produce the same digest.
func DigestJCS(input []byte) (string, error) {
	canonical, err := CanonicalizeJSON(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

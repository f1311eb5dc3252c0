// Package authz defines the narrow authorization boundary between the agent
// and the vault. The vault only ever sees Verifier; the signing side is used
// by the orchestrator when it builds an intent, never inside the ledger.
package authz

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Verifier checks that a digest was signed by the expected key.
// Malformed keys or signature bytes must report false, never a distinct
// error: a verification oracle must not leak why it failed.
type Verifier interface {
	Verify(digest, signature []byte, expectedKey string) bool
}

// Signer produces intent authorizations on the agent side.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	PublicKey() string
}

// Digest computes the canonical digest an intent authorization covers.
// The tuple is newline-delimited so no field can bleed into its neighbor,
// and the expiry is bound as a unix timestamp.
func Digest(recipient string, amount int64, memo string, nonce uint64, expiresAt time.Time) []byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n%s\n%d\n%d\n", recipient, amount, memo, nonce, expiresAt.Unix())
	return h.Sum(nil)
}

// Ed25519Verifier verifies signatures against hex-encoded ed25519 public keys.
type Ed25519Verifier struct{}

// Verify reports whether signature over digest was produced by expectedKey.
// Any malformed input verifies as false.
func (Ed25519Verifier) Verify(digest, signature []byte, expectedKey string) bool {
	key, err := hex.DecodeString(expectedKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key), digest, signature)
}

// Ed25519Signer signs digests with an ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewSigner derives a signer from a hex-encoded 32-byte seed.
func NewSigner(seedHex string) (*Ed25519Signer, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("authz: decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("authz: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// GenerateSigner creates a fresh signer and returns it with its hex seed.
func GenerateSigner() (*Ed25519Signer, string, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, "", fmt.Errorf("authz: generate key: %w", err)
	}
	seed := hex.EncodeToString(priv.Seed())
	return &Ed25519Signer{priv: priv}, seed, nil
}

// Sign produces an authorization over digest.
func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, digest), nil
}

// PublicKey returns the hex-encoded public key the vault should expect.
func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.priv.Public().(ed25519.PublicKey))
}

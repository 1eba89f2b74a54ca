// Package crypto holds the chain's primitives: ed25519 principals and
// signatures, SHA-256 content ids and seed-derived record addresses.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey reports a public key that is not 32 hex-encoded bytes.
	ErrInvalidKey = errors.New("invalid public key")
	// ErrBadSignature reports a signature that does not match the data.
	ErrBadSignature = errors.New("signature verification failed")
)

// PrivateKey is an ed25519 private key.
type PrivateKey []byte

// PublicKey is an ed25519 public key. Its hex form is a principal id.
type PublicKey []byte

// GenerateKeyPair returns a fresh ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// Public returns the key's public half.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// Hex is the principal id: the full hex-encoded key.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub)
}

// Address is a 40-char display label, the first 20 bytes of SHA-256(key).
// Only Hex identifies a principal on chain.
func (pub PublicKey) Address() string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:20])
}

// PubKeyFromHex parses a principal id.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKey, len(b))
	}
	return PublicKey(b), nil
}

// Sign returns the hex signature of data.
func Sign(priv PrivateKey, data []byte) string {
	return hex.EncodeToString(ed25519.Sign(ed25519.PrivateKey(priv), data))
}

// Verify checks a hex signature of data made by pub.
func Verify(pub PublicKey, data []byte, sig string) error {
	raw, err := hex.DecodeString(sig)
	if err != nil || !ed25519.Verify(ed25519.PublicKey(pub), data, raw) {
		return ErrBadSignature
	}
	return nil
}

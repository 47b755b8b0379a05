package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/way365/ledger-client/protocol"
)

// Signer holds the sender's Ed25519 key for the lifetime of one send.
// It is only ever built on the send path; viewing a transaction needs no key.
type Signer struct {
	privKey ed25519.PrivateKey
}

// NewSignerFromBase64 decodes a base64 Ed25519 key, either the 32-byte seed or
// the 64-byte seed||public form.
func NewSignerFromBase64(encoded string) (*Signer, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, protocol.NewConfigError("PRIVATE_KEY is empty")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, protocol.NewConfigError("PRIVATE_KEY is not valid base64: %v", err)
	}

	return NewSigner(raw)
}

func NewSigner(key []byte) (*Signer, error) {
	var privKey ed25519.PrivateKey

	switch len(key) {
	case ed25519.SeedSize:
		privKey = ed25519.NewKeyFromSeed(key)
	case ed25519.PrivateKeySize:
		privKey = ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
		if !bytes.Equal(privKey[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
			return nil, protocol.NewConfigError("PRIVATE_KEY public half does not match its seed")
		}
	default:
		return nil, protocol.NewConfigError("PRIVATE_KEY has %d bytes, want %d or %d",
			len(key), ed25519.SeedSize, ed25519.PrivateKeySize)
	}

	signer := &Signer{privKey: privKey}

	return signer, signer.verifyKey()
}

//Make sure the key being used can sign and verify before anything is sent.
func (s *Signer) verifyKey() error {
	probe := []byte("testing")
	if !Verify(s.PublicKey(), probe, s.Sign(probe)) {
		return protocol.NewConfigError("the ed25519 key you provided cannot verify its own signatures")
	}
	return nil
}

func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.privKey, message)
}

func (s *Signer) PublicKey() []byte {
	return []byte(s.privKey.Public().(ed25519.PublicKey))
}

func (s *Signer) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(s.PublicKey())
}

func Verify(pubKey, message, signature []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey, message, signature)
}

// VerifyBase64 checks a transport-encoded signature against transport-encoded public key.
func VerifyBase64(pubKey string, message []byte, signature string) bool {
	pub, err := base64.StdEncoding.DecodeString(pubKey)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return Verify(pub, message, sig)
}

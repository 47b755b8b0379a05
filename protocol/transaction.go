package protocol

// Signer produces detached signatures over canonical transaction bytes.
// Implemented by crypto.Signer; kept as an interface so the protocol package
// never touches key material.
type Signer interface {
	Sign(message []byte) []byte
	PublicKey() []byte
}

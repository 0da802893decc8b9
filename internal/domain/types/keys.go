package types

import "mterelay/internal/util/memzero"

// KeyPair is an ephemeral ECDH key pair. Public is the uncompressed SEC1
// point, Private the raw scalar.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// Wipe zeroes both halves.
func (k *KeyPair) Wipe() {
	memzero.Zero(k.Public)
	memzero.Zero(k.Private)
}

// SharedSecret is the output of one Diffie-Hellman derivation.
type SharedSecret struct {
	Secret []byte
}

// Wipe zeroes the secret.
func (s *SharedSecret) Wipe() { memzero.Zero(s.Secret) }

// MagicValues are the three inputs to engine instantiation. They must
// never be logged or persisted.
type MagicValues struct {
	Entropy         []byte
	Nonce           string
	Personalization string
}

// Wipe zeroes the entropy.
func (m *MagicValues) Wipe() { memzero.Zero(m.Entropy) }

// Handle is an opaque cipher engine object.
type Handle interface {
	Kind() HandleKind
}

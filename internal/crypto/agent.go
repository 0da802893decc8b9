package crypto

import (
	"fmt"

	"mterelay/internal/domain"
	"mterelay/internal/util/memzero"
)

const (
	// PublicKeySize is the length of an uncompressed P-256 point.
	PublicKeySize = 65
	// PrivateKeySize is the length of a P-256 scalar.
	PrivateKeySize = 32
	// SharedSecretBits is the length of every derived secret.
	SharedSecretBits = 256
)

// Agent produces ephemeral key pairs and shared secrets through a
// KeyAgreementProvider. It caches nothing.
type Agent struct {
	provider domain.KeyAgreementProvider
	curve    string
}

// NewAgent returns an Agent on CurveP256.
func NewAgent(p domain.KeyAgreementProvider) *Agent {
	return &Agent{provider: p, curve: CurveP256}
}

// GenerateKeyPair returns a fresh key pair or a KindKeyAgreement error.
func (a *Agent) GenerateKeyPair() (domain.KeyPair, error) {
	const op = "generate key pair"
	if a.provider == nil {
		return domain.KeyPair{}, domain.NewError(domain.KindKeyAgreement, op, "no key agreement provider")
	}
	pub, priv, err := a.provider.GenerateKeyPair(a.curve)
	if err != nil {
		return domain.KeyPair{}, domain.WrapError(domain.KindKeyAgreement, op, err)
	}
	if len(pub) != PublicKeySize || len(priv) != PrivateKeySize {
		memzero.Zero(priv)
		return domain.KeyPair{}, domain.WrapError(domain.KindKeyAgreement, op,
			fmt.Errorf("provider returned %d/%d byte keys", len(pub), len(priv)))
	}
	return domain.KeyPair{Public: pub, Private: priv}, nil
}

// DeriveSharedSecret computes the 256-bit secret between localPrivate and
// peerPublic.
func (a *Agent) DeriveSharedSecret(localPrivate, peerPublic []byte) (domain.SharedSecret, error) {
	const op = "derive shared secret"
	if a.provider == nil {
		return domain.SharedSecret{}, domain.NewError(domain.KindKeyAgreement, op, "no key agreement provider")
	}
	if len(peerPublic) != PublicKeySize {
		return domain.SharedSecret{}, domain.WrapError(domain.KindKeyAgreement, op,
			fmt.Errorf("peer public key is %d bytes, want %d", len(peerPublic), PublicKeySize))
	}
	secret, err := a.provider.DeriveBits(peerPublic, localPrivate, SharedSecretBits)
	if err != nil {
		return domain.SharedSecret{}, domain.WrapError(domain.KindKeyAgreement, op, err)
	}
	if len(secret) != SharedSecretBits/8 {
		memzero.Zero(secret)
		return domain.SharedSecret{}, domain.WrapError(domain.KindKeyAgreement, op,
			fmt.Errorf("provider returned %d byte secret", len(secret)))
	}
	return domain.SharedSecret{Secret: secret}, nil
}

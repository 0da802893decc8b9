package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"io"

	"mterelay/internal/domain"
)

// CurveP256 is the only named curve the relay pairs with.
const CurveP256 = "P-256"

// ECDHProvider implements domain.KeyAgreementProvider on NIST P-256.
type ECDHProvider struct {
	rand io.Reader
}

// NewECDHProvider returns a provider reading randomness from crypto/rand.
func NewECDHProvider() *ECDHProvider { return &ECDHProvider{rand: rand.Reader} }

func curveByName(name string) (ecdh.Curve, error) {
	if name != CurveP256 {
		return nil, fmt.Errorf("unsupported curve %q", name)
	}
	return ecdh.P256(), nil
}

// GenerateKeyPair returns the raw uncompressed public point and the raw
// private scalar.
func (p *ECDHProvider) GenerateKeyPair(curve string) ([]byte, []byte, error) {
	c, err := curveByName(curve)
	if err != nil {
		return nil, nil, err
	}
	priv, err := c.GenerateKey(p.rand)
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s key: %w", curve, err)
	}
	return priv.PublicKey().Bytes(), priv.Bytes(), nil
}

// DeriveBits runs P-256 Diffie-Hellman and returns the first bitLength bits
// of the x coordinate.
func (p *ECDHProvider) DeriveBits(peerPublicKey, localPrivateKey []byte, bitLength int) ([]byte, error) {
	if bitLength <= 0 || bitLength%8 != 0 || bitLength > 256 {
		return nil, fmt.Errorf("invalid bit length %d", bitLength)
	}
	c := ecdh.P256()
	priv, err := c.NewPrivateKey(localPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}
	pub, err := c.NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("import peer public key: %w", err)
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	return secret[:bitLength/8], nil
}

// Compile-time assertion that ECDHProvider implements domain.KeyAgreementProvider.
var _ domain.KeyAgreementProvider = (*ECDHProvider)(nil)

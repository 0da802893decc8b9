package interfaces

import (
	"context"

	domaintypes "mterelay/internal/domain/types"
)

// CipherEngine is the stateful encode/decode library. Every call returns a
// status; only StatusSuccess denotes success.
type CipherEngine interface {
	MakeEncoder() (domaintypes.Handle, domaintypes.Status)
	MakeDecoder() (domaintypes.Handle, domaintypes.Status)
	Initialize(h domaintypes.Handle, magic domaintypes.MagicValues) domaintypes.Status
	SaveState(h domaintypes.Handle) (string, domaintypes.Status)
	RestoreState(h domaintypes.Handle, state string) domaintypes.Status
	Encode(h domaintypes.Handle, payload []byte) ([]byte, domaintypes.Status)
	Decode(h domaintypes.Handle, payload []byte) ([]byte, domaintypes.Status)

	// InitStorage returns a storage instance concealing values written to
	// medium, scoped to category.
	InitStorage(
		category string,
		entropy []byte,
		nonce string,
		medium StorageMedium,
	) (SecureStorage, domaintypes.Status)

	StatusName(s domaintypes.Status) string
}

// SecureStorage conceals and reveals named string values.
type SecureStorage interface {
	ReadString(ctx context.Context, name string) (string, domaintypes.Status)
	WriteString(ctx context.Context, name, data string) domaintypes.Status
	Remove(ctx context.Context, name string) domaintypes.Status
}

// KeyAgreementProvider is the host's asymmetric key agreement primitive.
type KeyAgreementProvider interface {
	GenerateKeyPair(curve string) (publicKey, privateKey []byte, err error)
	DeriveBits(peerPublicKey, localPrivateKey []byte, bitLength int) ([]byte, error)
}

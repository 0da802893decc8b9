package engine

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"

	"mterelay/internal/domain"
	"mterelay/internal/util/memzero"
)

// Storage is the engine's secure storage variant for one category.
type Storage struct {
	category string
	aead     cipher.AEAD
	medium   domain.StorageMedium
}

// InitStorage derives the category key from entropy and nonce and binds it
// to medium.
func (e *Engine) InitStorage(
	category string,
	entropy []byte,
	nonce string,
	medium domain.StorageMedium,
) (domain.SecureStorage, domain.Status) {
	if medium == nil || category == "" {
		return nil, domain.StatusBadInput
	}
	if len(entropy) == 0 {
		return nil, domain.StatusBadEntropy
	}
	key, err := deriveKey(entropy, []byte(nonce), "mterelay-sdr|"+category)
	if err != nil {
		return nil, domain.StatusBadEntropy
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, domain.StatusBadEntropy
	}
	return &Storage{category: category, aead: aead, medium: medium}, domain.StatusSuccess
}

func (s *Storage) key(name string) string { return s.category + "/" + name }

// WriteString conceals data and stores it under name.
func (s *Storage) WriteString(ctx context.Context, name, data string) domain.Status {
	k := s.key(name)
	out := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(data)+s.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return domain.StatusStorageFailed
	}
	out = s.aead.Seal(out, out[:s.aead.NonceSize()], []byte(data), []byte(k))
	if err := s.medium.Put(ctx, k, []byte(base64.StdEncoding.EncodeToString(out))); err != nil {
		return domain.StatusStorageFailed
	}
	return domain.StatusSuccess
}

// ReadString reveals the value stored under name.
func (s *Storage) ReadString(ctx context.Context, name string) (string, domain.Status) {
	k := s.key(name)
	v, ok, err := s.medium.Get(ctx, k)
	if err != nil {
		return "", domain.StatusStorageFailed
	}
	if !ok {
		return "", domain.StatusNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(string(v))
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", domain.StatusDecodeFailed
	}
	pt, err := s.aead.Open(nil, raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():], []byte(k))
	if err != nil {
		return "", domain.StatusDecodeFailed
	}
	return string(pt), domain.StatusSuccess
}

// Remove deletes name. A missing entry is not an error.
func (s *Storage) Remove(ctx context.Context, name string) domain.Status {
	if err := s.medium.Delete(ctx, s.key(name)); err != nil {
		return domain.StatusStorageFailed
	}
	return domain.StatusSuccess
}

// Compile-time assertion that Storage implements domain.SecureStorage.
var _ domain.SecureStorage = (*Storage)(nil)

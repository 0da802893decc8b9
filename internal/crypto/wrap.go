package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"mterelay/internal/domain"
	"mterelay/internal/util/memzero"
)

const wrapInfoPrefix = "mterelay-wrap|"

var errShortWrapped = errors.New("wrapped secret too short")

func wrapKey(shared domain.SharedSecret, personalization string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, shared.Secret, nil, []byte(wrapInfoPrefix+personalization))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// Wrap seals plaintext under a key derived from shared and personalization
// and returns base64(nonce || ciphertext).
func Wrap(shared domain.SharedSecret, personalization string, plaintext []byte) (string, error) {
	key, err := wrapKey(shared, personalization)
	if err != nil {
		return "", err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", err
	}
	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return "", err
	}
	out = aead.Seal(out, out[:aead.NonceSize()], plaintext, []byte(personalization))
	return B64(out), nil
}

// Unwrap reverses Wrap.
func Unwrap(shared domain.SharedSecret, personalization, wrapped string) ([]byte, error) {
	raw, err := FromB64(wrapped)
	if err != nil {
		return nil, fmt.Errorf("decode wrapped secret: %w", err)
	}
	key, err := wrapKey(shared, personalization)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, errShortWrapped
	}
	pt, err := aead.Open(nil, raw[:aead.NonceSize()], raw[aead.NonceSize():], []byte(personalization))
	if err != nil {
		return nil, fmt.Errorf("open wrapped secret: %w", err)
	}
	return pt, nil
}

package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"mterelay/internal/domain"
	"mterelay/internal/util/memzero"
)

const (
	keySize    = chacha20poly1305.KeySize
	seqSize    = 8
	windowSize = 64
)

var statusNames = map[domain.Status]string{
	domain.StatusSuccess:         "mte_status_success",
	domain.StatusBadEntropy:      "mte_status_bad_entropy",
	domain.StatusNotInstantiated: "mte_status_not_instantiated",
	domain.StatusBadState:        "mte_status_bad_state",
	domain.StatusBadInput:        "mte_status_bad_input",
	domain.StatusDecodeFailed:    "mte_status_decode_failed",
	domain.StatusTokenExists:     "mte_status_token_exists",
	domain.StatusTokenOld:        "mte_status_token_old",
	domain.StatusNotFound:        "mte_status_not_found",
	domain.StatusStorageFailed:   "mte_status_storage_failed",
	domain.StatusLicenseError:    "mte_status_license_error",
}

// Engine creates and drives Encoder and Decoder handles.
type Engine struct {
	company string
}

// New checks the license pair and returns an Engine. A license key without
// a licensed company is refused; both empty runs unlicensed.
func New(licensedCompany, licenseKey string) (*Engine, domain.Status) {
	if licenseKey != "" && licensedCompany == "" {
		return nil, domain.StatusLicenseError
	}
	return &Engine{company: licensedCompany}, domain.StatusSuccess
}

// StatusName returns the symbolic name of s.
func StatusName(s domain.Status) string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "mte_status_unknown"
}

// StatusName returns the symbolic name of s.
func (e *Engine) StatusName(s domain.Status) string { return StatusName(s) }

// MakeEncoder returns an uninstantiated Encoder.
func (e *Engine) MakeEncoder() (domain.Handle, domain.Status) {
	return &Encoder{}, domain.StatusSuccess
}

// MakeDecoder returns an uninstantiated Decoder.
func (e *Engine) MakeDecoder() (domain.Handle, domain.Status) {
	return &Decoder{}, domain.StatusSuccess
}

// Initialize instantiates h from the magic values, discarding any previous
// state.
func (e *Engine) Initialize(h domain.Handle, magic domain.MagicValues) domain.Status {
	c, ok := coreOf(h)
	if !ok {
		return domain.StatusBadInput
	}
	if len(magic.Entropy) == 0 {
		return domain.StatusBadEntropy
	}
	key, err := deriveKey(magic.Entropy, []byte(magic.Nonce), "mterelay-engine|"+magic.Personalization)
	if err != nil {
		return domain.StatusBadEntropy
	}
	c.reset()
	c.key = key
	c.ready = true
	return domain.StatusSuccess
}

// Encode seals payload with the next sequence number.
func (e *Engine) Encode(h domain.Handle, payload []byte) ([]byte, domain.Status) {
	enc, ok := h.(*Encoder)
	if !ok {
		return nil, domain.StatusBadInput
	}
	if !enc.ready {
		return nil, domain.StatusNotInstantiated
	}
	if enc.seq == ^uint64(0) {
		return nil, domain.StatusBadState
	}
	aead, err := chacha20poly1305.New(enc.key)
	if err != nil {
		return nil, domain.StatusBadState
	}
	seq := enc.seq + 1
	out := make([]byte, seqSize, seqSize+len(payload)+aead.Overhead())
	binary.BigEndian.PutUint64(out, seq)
	out = aead.Seal(out, nonceFor(seq), payload, out[:seqSize])
	enc.seq = seq
	return out, domain.StatusSuccess
}

// Decode opens a token produced by the complementary Encoder.
func (e *Engine) Decode(h domain.Handle, payload []byte) ([]byte, domain.Status) {
	dec, ok := h.(*Decoder)
	if !ok {
		return nil, domain.StatusBadInput
	}
	if !dec.ready {
		return nil, domain.StatusNotInstantiated
	}
	if len(payload) < seqSize+chacha20poly1305.Overhead {
		return nil, domain.StatusBadInput
	}
	seq := binary.BigEndian.Uint64(payload[:seqSize])
	if s := dec.check(seq); !s.OK() {
		return nil, s
	}
	aead, err := chacha20poly1305.New(dec.key)
	if err != nil {
		return nil, domain.StatusBadState
	}
	pt, err := aead.Open(nil, nonceFor(seq), payload[seqSize:], payload[:seqSize])
	if err != nil {
		return nil, domain.StatusDecodeFailed
	}
	dec.accept(seq)
	if pt == nil {
		pt = []byte{}
	}
	return pt, domain.StatusSuccess
}

func nonceFor(seq uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(n[chacha20poly1305.NonceSize-seqSize:], seq)
	return n
}

func deriveKey(secret, salt []byte, info string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), key); err != nil {
		memzero.Zero(key)
		return nil, err
	}
	return key, nil
}

// Compile-time assertion that Engine implements domain.CipherEngine.
var _ domain.CipherEngine = (*Engine)(nil)

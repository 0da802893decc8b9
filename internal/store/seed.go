package store

import (
	"encoding/json"
	"os"

	"mterelay/internal/util/memzero"
)

// Seed is the entropy and nonce a Repository derives its storage keys from.
type Seed struct {
	Entropy []byte `json:"entropy"`
	Nonce   string `json:"nonce"`
}

// Wipe zeroes the entropy.
func (s *Seed) Wipe() {
	if s != nil {
		memzero.Zero(s.Entropy)
	}
}

func ensureDir(dir string) error { return os.MkdirAll(dir, 0o700) }

// SaveSeed seals s under passphrase and writes it to path.
func SaveSeed(path, passphrase string, s Seed) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)
	b, err := seal(passphrase, raw, defaultScrypt)
	if err != nil {
		return err
	}
	return writeFile(path, b, 0o600)
}

// LoadSeed reads the seed at path. A missing file yields (nil, nil).
func LoadSeed(path, passphrase string) (*Seed, error) {
	b, err := readFile(path)
	if err != nil || b == nil {
		return nil, err
	}
	raw, err := open(passphrase, b)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(raw)
	var s Seed
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

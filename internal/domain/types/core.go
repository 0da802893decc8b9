package types

import (
	"fmt"
	"strings"
)

// PairID is the relay-assigned identifier of an encoder/decoder pairing.
type PairID string

// String returns the string form of the pair identifier.
func (id PairID) String() string { return string(id) }

// ClientID identifies this client to the relay.
type ClientID string

// String returns the string form of the client identifier.
func (id ClientID) String() string { return string(id) }

// Status is a cipher engine return code. StatusSuccess is the only
// non-error value.
type Status int

const (
	StatusSuccess Status = iota
	StatusBadEntropy
	StatusNotInstantiated
	StatusBadState
	StatusBadInput
	StatusDecodeFailed
	StatusTokenExists
	StatusTokenOld
	StatusNotFound
	StatusStorageFailed
	StatusLicenseError
)

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// EncodeType selects the cipher engine mode advertised in the relay header.
type EncodeType int

const (
	EncodeMTE EncodeType = 0
	EncodeMKE EncodeType = 1
)

// String returns "MTE" or "MKE".
func (t EncodeType) String() string {
	switch t {
	case EncodeMTE:
		return "MTE"
	case EncodeMKE:
		return "MKE"
	default:
		return fmt.Sprintf("EncodeType(%d)", int(t))
	}
}

// ParseEncodeType parses a case-insensitive mode name. Empty means MKE.
func ParseEncodeType(s string) (EncodeType, error) {
	switch strings.ToUpper(s) {
	case "", "MKE":
		return EncodeMKE, nil
	case "MTE":
		return EncodeMTE, nil
	default:
		return EncodeMKE, fmt.Errorf("unknown encode type %q", s)
	}
}

// HandleKind distinguishes encoder handles from decoder handles.
type HandleKind int

const (
	EncoderKind HandleKind = iota
	DecoderKind
)

// String returns "encoder" or "decoder".
func (k HandleKind) String() string {
	if k == EncoderKind {
		return "encoder"
	}
	return "decoder"
}

// HeaderDisposition decides which request headers are encoded into the
// x-mte-relay-eh header.
type HeaderDisposition int

const (
	EncodeNoHeaders HeaderDisposition = iota
	EncodeAllHeaders
	EncodeListOfHeaders
)

var dispositionNames = []string{"EncodeNoHeaders", "EncodeAllHeaders", "EncodeListOfHeaders"}

// String returns the configuration name of d.
func (d HeaderDisposition) String() string {
	if int(d) < 0 || int(d) >= len(dispositionNames) {
		return fmt.Sprintf("HeaderDisposition(%d)", int(d))
	}
	return dispositionNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d HeaderDisposition) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *HeaderDisposition) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "" {
		*d = EncodeNoHeaders
		return nil
	}
	for i, name := range dispositionNames {
		if strings.EqualFold(name, s) {
			*d = HeaderDisposition(i)
			return nil
		}
	}
	return fmt.Errorf("unknown header disposition %q", s)
}

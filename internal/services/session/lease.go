package session

import (
	"context"
	"encoding/base64"
	"sync"

	"mterelay/internal/domain"
)

// Lease holds one pair for callers that only need payload transforms.
// Release must be called exactly once the caller is done.
type Lease struct {
	s    *Session
	p    *domain.PairSession
	once sync.Once
}

// Lease acquires a pair with live handles.
func (s *Session) Lease(ctx context.Context) (*Lease, error) {
	p, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Lease{s: s, p: p}, nil
}

// PairID returns the leased pair's id.
func (l *Lease) PairID() domain.PairID { return l.p.PairID }

// Encode runs the pair's encoder over b.
func (l *Lease) Encode(b []byte) ([]byte, error) {
	return l.s.codec.SealBody(l.p.Encoder, b)
}

// Decode runs the pair's decoder over b.
func (l *Lease) Decode(b []byte) ([]byte, error) {
	return l.s.codec.OpenBody(l.p.Decoder, b)
}

// EncodeString encodes s and returns the token as base64.
func (l *Lease) EncodeString(s string) (string, error) {
	tok, err := l.Encode([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(tok), nil
}

// DecodeString reverses EncodeString.
func (l *Lease) DecodeString(s string) (string, error) {
	tok, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", domain.WrapError(domain.KindProtocol, "session.DecodeString", err)
	}
	out, err := l.Decode(tok)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Release parks the pair. Later calls do nothing.
func (l *Lease) Release(ctx context.Context) {
	l.once.Do(func() { l.s.park(ctx, l.p) })
}

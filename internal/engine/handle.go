package engine

import (
	"mterelay/internal/domain"
	"mterelay/internal/util/memzero"
)

// core is the state shared by both handle kinds. For an Encoder seq is the
// last sequence number issued; for a Decoder it is the highest accepted and
// window holds the acceptance bitmap below it (bit 0 is seq itself).
type core struct {
	key    []byte
	seq    uint64
	window uint64
	ready  bool
}

func (c *core) reset() {
	memzero.Zero(c.key)
	c.key = nil
	c.seq = 0
	c.window = 0
	c.ready = false
}

// Encoder is the sending half of a pairing.
type Encoder struct{ core }

// Kind implements domain.Handle.
func (*Encoder) Kind() domain.HandleKind { return domain.EncoderKind }

// Decoder is the receiving half of a pairing.
type Decoder struct{ core }

// Kind implements domain.Handle.
func (*Decoder) Kind() domain.HandleKind { return domain.DecoderKind }

// Instantiated reports whether h carries live key material.
func Instantiated(h domain.Handle) bool {
	c, ok := coreOf(h)
	return ok && c.ready
}

func coreOf(h domain.Handle) (*core, bool) {
	switch v := h.(type) {
	case *Encoder:
		if v == nil {
			return nil, false
		}
		return &v.core, true
	case *Decoder:
		if v == nil {
			return nil, false
		}
		return &v.core, true
	default:
		return nil, false
	}
}

func (c *core) check(seq uint64) domain.Status {
	if seq == 0 {
		return domain.StatusBadInput
	}
	if seq > c.seq {
		return domain.StatusSuccess
	}
	diff := c.seq - seq
	if diff >= windowSize {
		return domain.StatusTokenOld
	}
	if c.window&(1<<diff) != 0 {
		return domain.StatusTokenExists
	}
	return domain.StatusSuccess
}

func (c *core) accept(seq uint64) {
	if seq > c.seq {
		shift := seq - c.seq
		if shift >= windowSize {
			c.window = 0
		} else {
			c.window <<= shift
		}
		c.window |= 1
		c.seq = seq
		return
	}
	c.window |= 1 << (c.seq - seq)
}

package engine

import (
	"encoding/base64"

	"github.com/fxamacker/cbor/v2"

	"mterelay/internal/domain"
)

// savedState is the cbor layout behind SaveState strings.
type savedState struct {
	Kind   domain.HandleKind `cbor:"1,keyasint"`
	Key    []byte            `cbor:"2,keyasint"`
	Seq    uint64            `cbor:"3,keyasint"`
	Window uint64            `cbor:"4,keyasint"`
}

// SaveState returns the handle's state as base64.
func (e *Engine) SaveState(h domain.Handle) (string, domain.Status) {
	c, ok := coreOf(h)
	if !ok {
		return "", domain.StatusBadInput
	}
	if !c.ready {
		return "", domain.StatusNotInstantiated
	}
	b, err := cbor.Marshal(savedState{Kind: h.Kind(), Key: c.key, Seq: c.seq, Window: c.window})
	if err != nil {
		return "", domain.StatusBadState
	}
	return base64.StdEncoding.EncodeToString(b), domain.StatusSuccess
}

// RestoreState replaces the handle's state with one produced by SaveState
// for a handle of the same kind.
func (e *Engine) RestoreState(h domain.Handle, state string) domain.Status {
	c, ok := coreOf(h)
	if !ok {
		return domain.StatusBadInput
	}
	raw, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return domain.StatusBadState
	}
	var st savedState
	if err := cbor.Unmarshal(raw, &st); err != nil {
		return domain.StatusBadState
	}
	if st.Kind != h.Kind() || len(st.Key) != keySize {
		return domain.StatusBadState
	}
	c.reset()
	c.key = st.Key
	c.seq = st.Seq
	c.window = st.Window
	c.ready = true
	return domain.StatusSuccess
}

package types

// PairStatus is the checkout state of a PairSession.
type PairStatus int

const (
	PairIdle PairStatus = iota
	PairBusy
)

// String returns "idle" or "busy".
func (s PairStatus) String() string {
	if s == PairBusy {
		return "busy"
	}
	return "idle"
}

// PairSession binds a relay pairing to the engine handles currently
// carrying its state. Encoder and Decoder are nil while the state lives
// only in the secure state repository.
type PairSession struct {
	PairID  PairID
	Encoder Handle
	Decoder Handle
	Status  PairStatus
}

// HasLiveState reports whether both handles are bound.
func (p *PairSession) HasLiveState() bool {
	return p.Encoder != nil && p.Decoder != nil
}

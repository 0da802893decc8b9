package pool

import (
	"sync"

	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/domain"
	"mterelay/internal/instrument"
)

// Factory creates an empty handle.
type Factory func() (domain.Handle, domain.Status)

// Pool is a self-growing set of idle handles of one kind.
type Pool struct {
	mu      sync.Mutex
	kind    domain.HandleKind
	factory Factory
	names   func(domain.Status) string
	idle    []domain.Handle
	members map[domain.Handle]struct{}
	log     *logging.Logger
}

// New returns an empty Pool creating handles with factory.
func New(kind domain.HandleKind, factory Factory, statusName func(domain.Status) string, log *logging.Logger) *Pool {
	if statusName == nil {
		statusName = func(domain.Status) string { return "unknown" }
	}
	return &Pool{
		kind:    kind,
		factory: factory,
		names:   statusName,
		members: make(map[domain.Handle]struct{}),
		log:     log,
	}
}

// Checkout removes and returns an idle handle, creating one when none is
// idle.
func (p *Pool) Checkout() (domain.Handle, error) {
	instrument.Checkout(p.kind.String())

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		delete(p.members, h)
		instrument.IdleHandles(p.kind.String(), len(p.idle))
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	return p.create()
}

// Return puts h back as idle. Returning a handle that is already idle is
// ignored.
func (p *Pool) Return(h domain.Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, dup := p.members[h]; dup {
		if p.log != nil {
			p.log.Warningf("pool: ignoring duplicate return of %s handle", p.kind)
		}
		return
	}
	p.members[h] = struct{}{}
	p.idle = append(p.idle, h)
	instrument.IdleHandles(p.kind.String(), len(p.idle))
}

// Fill creates handles until at least n are idle.
func (p *Pool) Fill(n int) error {
	for p.Size() < n {
		h, err := p.create()
		if err != nil {
			return err
		}
		p.Return(h)
	}
	return nil
}

// Size returns the idle count, for diagnostics.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) create() (domain.Handle, error) {
	h, st := p.factory()
	if !st.OK() || h == nil {
		instrument.CipherFailure("make_" + p.kind.String())
		return nil, domain.StatusError("make "+p.kind.String(), st, p.names(st))
	}
	instrument.HandleCreated(p.kind.String())
	if p.log != nil {
		p.log.Debugf("pool: created %s handle", p.kind)
	}
	return h, nil
}

// EnginePool is the process-wide pair of encoder and decoder pools.
type EnginePool struct {
	Encoders *Pool
	Decoders *Pool
}

// NewEnginePool builds both pools over e.
func NewEnginePool(e domain.CipherEngine, log *logging.Logger) *EnginePool {
	return &EnginePool{
		Encoders: New(domain.EncoderKind, e.MakeEncoder, e.StatusName, log),
		Decoders: New(domain.DecoderKind, e.MakeDecoder, e.StatusName, log),
	}
}

// Fill pre-creates n idle handles of each kind.
func (ep *EnginePool) Fill(n int) error {
	if err := ep.Encoders.Fill(n); err != nil {
		return err
	}
	return ep.Decoders.Fill(n)
}

// Count returns the idle decoder count.
func (ep *EnginePool) Count() int { return ep.Decoders.Size() }

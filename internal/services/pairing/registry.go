package pairing

import (
	"sync"

	"mterelay/internal/domain"
)

// Registry holds the pairs of one endpoint. Acquire hands out idle pairs in
// registration order.
type Registry struct {
	mu    sync.Mutex
	order []*domain.PairSession
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds p. A pair id already present is replaced.
func (r *Registry) Register(p *domain.PairSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.order {
		if q.PairID == p.PairID {
			r.order[i] = p
			return
		}
	}
	r.order = append(r.order, p)
}

// Acquire marks the first idle pair busy and returns it.
func (r *Registry) Acquire() (*domain.PairSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.order {
		if p.Status == domain.PairIdle {
			p.Status = domain.PairBusy
			// Rotate so the next Acquire prefers a different pair.
			r.order = append(append(r.order[:i:i], r.order[i+1:]...), p)
			return p, true
		}
	}
	return nil, false
}

// Release marks p idle again.
func (r *Registry) Release(p *domain.PairSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Status = domain.PairIdle
}

// Remove forgets the pair with id.
func (r *Registry) Remove(id domain.PairID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.order {
		if p.PairID == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered pairs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// IDs lists registered pair ids.
func (r *Registry) IDs() []domain.PairID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]domain.PairID, len(r.order))
	for i, p := range r.order {
		ids[i] = p.PairID
	}
	return ids
}

package pairing

import (
	"context"
	"strings"

	"mterelay/internal/domain"
)

// SaveStates writes the live encoder and decoder states of p.
func (c *Coordinator) SaveStates(ctx context.Context, p *domain.PairSession) error {
	for _, h := range []domain.Handle{p.Encoder, p.Decoder} {
		state, st := c.engine.SaveState(h)
		if st != domain.StatusSuccess {
			return domain.StatusError("pairing.SaveStates", st, c.engine.StatusName(st))
		}
		if err := c.repo.Write(ctx, c.stateName(h.Kind(), p.PairID), state, true); err != nil {
			return err
		}
	}
	return nil
}

// Bind gives p live handles. A pair that still holds them is left alone;
// otherwise fresh handles are checked out and restored from the repository.
func (c *Coordinator) Bind(ctx context.Context, p *domain.PairSession) error {
	if p.HasLiveState() {
		return nil
	}
	const op = "pairing.Bind"

	enc, err := c.pool.Encoders.Checkout()
	if err != nil {
		return err
	}
	dec, err := c.pool.Decoders.Checkout()
	if err != nil {
		c.pool.Encoders.Return(enc)
		return err
	}
	for _, h := range []domain.Handle{enc, dec} {
		state, err := c.repo.Read(ctx, c.stateName(h.Kind(), p.PairID), true)
		if err == nil {
			if st := c.engine.RestoreState(h, state); st != domain.StatusSuccess {
				err = domain.StatusError(op, st, c.engine.StatusName(st))
			}
		}
		if err != nil {
			c.pool.Encoders.Return(enc)
			c.pool.Decoders.Return(dec)
			return err
		}
	}
	p.Encoder, p.Decoder = enc, dec
	return nil
}

// Park persists p's states, returns its handles to the pool and releases
// the pair. Persistence ignores cancellation of ctx so a cancelled call
// cannot leave the repository behind the handles. When the states cannot
// be saved the pair is dropped.
func (c *Coordinator) Park(ctx context.Context, p *domain.PairSession) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	if p.HasLiveState() {
		err = c.SaveStates(ctx, p)
	}
	c.releaseHandles(p)
	if err != nil {
		c.log.Warningf("dropping pair %s: %v", p.PairID, err)
		c.Drop(ctx, p.PairID)
		return err
	}
	c.registry.Release(p)
	return nil
}

// Drop forgets a pair entirely.
func (c *Coordinator) Drop(ctx context.Context, id domain.PairID) {
	c.registry.Remove(id)
	c.forget(ctx, id)
	if err := c.saveIndex(ctx); err != nil {
		c.log.Warningf("saving pair index: %v", err)
	}
}

// Rehydrate registers the pairs recorded in the repository without binding
// handles and returns how many it found.
func (c *Coordinator) Rehydrate(ctx context.Context) (int, error) {
	id, err := c.repo.Read(ctx, c.clientIDName(), true)
	switch {
	case err == nil:
		c.mu.Lock()
		c.clientID = domain.ClientID(id)
		c.mu.Unlock()
	case domain.IsKind(err, domain.KindNotFound):
		return 0, nil
	default:
		return 0, err
	}

	index, err := c.repo.Read(ctx, c.indexName(), true)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, s := range strings.Split(index, ",") {
		if s == "" {
			continue
		}
		c.registry.Register(&domain.PairSession{PairID: domain.PairID(s), Status: domain.PairIdle})
		n++
	}
	return n, nil
}

package pool_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/pool"
)

func newPools(t *testing.T) *pool.EnginePool {
	t.Helper()
	e, st := engine.New("", "")
	require.True(t, st.OK())
	return pool.NewEnginePool(e, nil)
}

func TestCheckout_DistinctWithoutReturn(t *testing.T) {
	ep := newPools(t)

	seen := map[domain.Handle]bool{}
	for i := 0; i < 10; i++ {
		h, err := ep.Encoders.Checkout()
		require.NoError(t, err)
		require.Equal(t, domain.EncoderKind, h.Kind())
		require.False(t, seen[h], "handle handed out twice")
		seen[h] = true
	}
	require.Equal(t, 0, ep.Encoders.Size())
}

func TestReturn_ThenCheckoutReuses(t *testing.T) {
	ep := newPools(t)

	h, err := ep.Decoders.Checkout()
	require.NoError(t, err)
	ep.Decoders.Return(h)
	require.Equal(t, 1, ep.Decoders.Size())

	again, err := ep.Decoders.Checkout()
	require.NoError(t, err)
	require.Same(t, h, again)
	require.Equal(t, 0, ep.Decoders.Size())
}

func TestReturn_DuplicateIgnored(t *testing.T) {
	ep := newPools(t)

	h, err := ep.Encoders.Checkout()
	require.NoError(t, err)
	ep.Encoders.Return(h)
	ep.Encoders.Return(h)
	require.Equal(t, 1, ep.Encoders.Size())
}

func TestFill(t *testing.T) {
	ep := newPools(t)
	require.NoError(t, ep.Fill(3))
	require.Equal(t, 3, ep.Encoders.Size())
	require.Equal(t, 3, ep.Count())

	require.NoError(t, ep.Fill(2))
	require.Equal(t, 3, ep.Encoders.Size())
}

func TestCheckout_FactoryFailure(t *testing.T) {
	p := pool.New(domain.EncoderKind, func() (domain.Handle, domain.Status) {
		return nil, domain.StatusLicenseError
	}, nil, nil)

	_, err := p.Checkout()
	require.True(t, domain.IsKind(err, domain.KindCipherOperation))
}

func TestCheckout_ConcurrentNeverShares(t *testing.T) {
	ep := newPools(t)
	require.NoError(t, ep.Fill(8))

	const workers, rounds = 16, 200
	var (
		mu    sync.Mutex
		inUse = map[domain.Handle]bool{}
		wg    sync.WaitGroup
		fail  = make(chan string, workers)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				h, err := ep.Encoders.Checkout()
				if err != nil {
					fail <- err.Error()
					return
				}
				mu.Lock()
				if inUse[h] {
					mu.Unlock()
					fail <- "handle checked out twice"
					return
				}
				inUse[h] = true
				mu.Unlock()

				mu.Lock()
				delete(inUse, h)
				mu.Unlock()
				ep.Encoders.Return(h)
			}
		}()
	}
	wg.Wait()
	close(fail)
	for msg := range fail {
		t.Fatal(msg)
	}
	require.GreaterOrEqual(t, ep.Encoders.Size(), 8)
}

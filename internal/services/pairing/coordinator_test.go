package pairing_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"mterelay/internal/crypto"
	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/log"
	"mterelay/internal/pool"
	"mterelay/internal/services/pairing"
	"mterelay/internal/store"
)

// fakeRelay plays the relay side of pairing in process and keeps the magic
// values it handed out.
type fakeRelay struct {
	agent  *crypto.Agent
	err    error
	mangle bool
	calls  atomic.Int32

	mu       sync.Mutex
	encMagic domain.MagicValues // for the client's encoder
	decMagic domain.MagicValues // for the client's decoder
}

func (f *fakeRelay) side(peer, pers, nonce string) (secret, public string, m domain.MagicValues, err error) {
	pub, err := crypto.FromB64(peer)
	if err != nil {
		return "", "", m, err
	}
	kp, err := f.agent.GenerateKeyPair()
	if err != nil {
		return "", "", m, err
	}
	shared, err := f.agent.DeriveSharedSecret(kp.Private, pub)
	if err != nil {
		return "", "", m, err
	}
	m = domain.MagicValues{Entropy: []byte("0123456789abcdef0123456789abcdef"), Nonce: nonce, Personalization: pers}
	secret, err = crypto.Wrap(shared, pers, m.Entropy)
	if err != nil {
		return "", "", m, err
	}
	if f.mangle {
		secret = "AAAA" + secret[4:]
	}
	return secret, crypto.B64(kp.Public), m, nil
}

func (f *fakeRelay) Pair(_ context.Context, clientID domain.ClientID, req domain.PairRequest) (domain.PairResponse, domain.ClientID, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return domain.PairResponse{}, "", f.err
	}
	if req.PairID != nil {
		return domain.PairResponse{}, "", errors.New("pairId must be null")
	}
	es, ep, em, err := f.side(req.EncoderPublicKey, req.EncoderPersonalizationStr, "101")
	if err != nil {
		return domain.PairResponse{}, "", err
	}
	ds, dp, dm, err := f.side(req.DecoderPublicKey, req.DecoderPersonalizationStr, "202")
	if err != nil {
		return domain.PairResponse{}, "", err
	}
	f.mu.Lock()
	f.encMagic, f.decMagic = em, dm
	f.mu.Unlock()
	if clientID == "" {
		clientID = "c1"
	}
	return domain.PairResponse{
		PairID:           "p" + strconv.Itoa(int(n)),
		EncoderSecret:    es,
		EncoderNonce:     "101",
		DecoderSecret:    ds,
		DecoderNonce:     "202",
		EncoderPublicKey: ep,
		DecoderPublicKey: dp,
	}, clientID, nil
}

func (f *fakeRelay) Do(context.Context, *http.Request) (*http.Response, error) {
	return nil, errors.New("not used")
}

type failingEngine struct {
	*engine.Engine
	failInit domain.HandleKind
}

func (f *failingEngine) Initialize(h domain.Handle, m domain.MagicValues) domain.Status {
	if h.Kind() == f.failInit {
		return domain.StatusBadEntropy
	}
	return f.Engine.Initialize(h, m)
}

type brokenProvider struct{}

func (brokenProvider) GenerateKeyPair(string) ([]byte, []byte, error) {
	return nil, nil, errors.New("provider unavailable")
}

func (brokenProvider) DeriveBits([]byte, []byte, int) ([]byte, error) {
	return nil, errors.New("provider unavailable")
}

type failingMedium struct{ *store.MemoryMedium }

func (failingMedium) Put(context.Context, string, []byte) error { return errors.New("disk full") }

// flakyMedium accepts the first ok writes and fails the rest.
type flakyMedium struct {
	*store.MemoryMedium
	ok atomic.Int32
}

func (m *flakyMedium) Put(ctx context.Context, key string, value []byte) error {
	if m.ok.Add(-1) < 0 {
		return errors.New("disk full")
	}
	return m.MemoryMedium.Put(ctx, key, value)
}

type fixture struct {
	engine domain.CipherEngine
	agent  *crypto.Agent
	pool   *pool.EnginePool
	repo   *store.Repository
	relay  *fakeRelay
	coord  *pairing.Coordinator
}

func newFixture(t *testing.T, durable domain.StorageMedium, e domain.CipherEngine, agent *crypto.Agent) *fixture {
	t.Helper()
	lg := log.Discard().GetLogger("pairing_test")
	if e == nil {
		real, st := engine.New("", "")
		require.Equal(t, domain.StatusSuccess, st)
		e = real
	}
	if agent == nil {
		agent = crypto.NewAgent(crypto.NewECDHProvider())
	}
	if durable == nil {
		durable = store.NewMemoryMedium()
	}
	repo := store.NewRepository(e, store.NewMemoryMedium(), durable, store.Options{Log: lg})
	require.NoError(t, repo.Init(context.Background()))
	f := &fixture{
		engine: e,
		agent:  agent,
		pool:   pool.NewEnginePool(e, lg),
		repo:   repo,
		relay:  &fakeRelay{agent: crypto.NewAgent(crypto.NewECDHProvider())},
	}
	f.coord = pairing.New("https://api.example.test", pairing.Deps{
		Agent:     f.agent,
		Engine:    e,
		Pool:      f.pool,
		Transport: f.relay,
		Repo:      repo,
		Log:       lg,
	})
	return f
}

func TestPair_HelloRoundTrip(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	p, err := f.coord.Pair(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PairID("p1"), p.PairID)
	require.Equal(t, domain.PairBusy, p.Status)
	require.True(t, p.HasLiveState())
	require.Equal(t, domain.ClientID("c1"), f.coord.ClientID())

	// The relay's decoder, keyed from the secret it wrapped for our encoder.
	relayDec, st := f.engine.MakeDecoder()
	require.Equal(t, domain.StatusSuccess, st)
	require.Equal(t, domain.StatusSuccess, f.engine.Initialize(relayDec, f.relay.encMagic))

	tok, st := f.engine.Encode(p.Encoder, []byte("hello"))
	require.Equal(t, domain.StatusSuccess, st)
	out, st := f.engine.Decode(relayDec, tok)
	require.Equal(t, domain.StatusSuccess, st)
	require.Equal(t, "hello", string(out))

	// And the other direction.
	relayEnc, _ := f.engine.MakeEncoder()
	require.Equal(t, domain.StatusSuccess, f.engine.Initialize(relayEnc, f.relay.decMagic))
	tok, _ = f.engine.Encode(relayEnc, []byte("hello back"))
	out, st = f.engine.Decode(p.Decoder, tok)
	require.Equal(t, domain.StatusSuccess, st)
	require.Equal(t, "hello back", string(out))

	require.Equal(t, []domain.PairID{"p1"}, f.coord.Registry().IDs())
}

func requireNoPair(t *testing.T, f *fixture, err error, kind domain.ErrKind, reached pairing.Step) {
	t.Helper()
	require.Error(t, err)
	require.True(t, domain.IsKind(err, domain.KindPairing), "kind %v", domain.KindOf(err))
	step, ok := pairing.FailedAt(err)
	require.True(t, ok)
	require.Equal(t, reached, step)
	var fail *pairing.Failure
	require.True(t, errors.As(err, &fail))
	require.Equal(t, kind, domain.KindOf(fail.Err))
	require.Zero(t, f.coord.Registry().Len())
	_, ok = f.coord.Registry().Acquire()
	require.False(t, ok)
}

func TestPair_FailuresLeaveNothingRegistered(t *testing.T) {
	ctx := context.Background()

	t.Run("key generation", func(t *testing.T) {
		f := newFixture(t, nil, nil, crypto.NewAgent(brokenProvider{}))
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindKeyAgreement, pairing.StepUnpaired)
		require.Zero(t, f.relay.calls.Load())
	})

	t.Run("relay rejects", func(t *testing.T) {
		f := newFixture(t, nil, nil, nil)
		f.relay.err = domain.NewError(domain.KindTransport, "relay.Pair", "503")
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindTransport, pairing.StepKeysGenerated)
	})

	t.Run("secret does not unwrap", func(t *testing.T) {
		f := newFixture(t, nil, nil, nil)
		f.relay.mangle = true
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindKeyAgreement, pairing.StepSentToRelay)
	})

	t.Run("decoder initialization", func(t *testing.T) {
		real, _ := engine.New("", "")
		fe := &failingEngine{Engine: real, failInit: domain.DecoderKind}
		f := newFixture(t, nil, fe, nil)
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindCipherOperation, pairing.StepSecretDerived)
		// The encoder went back; the failed decoder was dropped.
		require.Equal(t, 1, f.pool.Encoders.Size())
		require.Zero(t, f.pool.Decoders.Size())
	})

	t.Run("state persistence", func(t *testing.T) {
		f := newFixture(t, failingMedium{store.NewMemoryMedium()}, nil, nil)
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindRepositoryOperation, pairing.StepEngineInitialized)
		require.Equal(t, 1, f.pool.Encoders.Size())
		require.Equal(t, 1, f.pool.Decoders.Size())
	})

	t.Run("decoder state persistence", func(t *testing.T) {
		durable := &flakyMedium{MemoryMedium: store.NewMemoryMedium()}
		durable.ok.Store(1)
		f := newFixture(t, durable, nil, nil)
		_, err := f.coord.Pair(ctx)
		requireNoPair(t, f, err, domain.KindRepositoryOperation, pairing.StepEngineInitialized)
		// The encoder state that did land is removed again.
		require.Zero(t, durable.Len())
		require.Equal(t, 1, f.pool.Encoders.Size())
		require.Equal(t, 1, f.pool.Decoders.Size())
	})
}

func TestPair_WithoutLogger(t *testing.T) {
	real, st := engine.New("", "")
	require.Equal(t, domain.StatusSuccess, st)
	c := pairing.New("https://api.example.test", pairing.Deps{
		Agent:     crypto.NewAgent(brokenProvider{}),
		Engine:    real,
		Pool:      pool.NewEnginePool(real, nil),
		Transport: &fakeRelay{},
		Repo:      store.NewRepository(real, store.NewMemoryMedium(), store.NewMemoryMedium(), store.Options{}),
	})
	var err error
	require.NotPanics(t, func() { _, err = c.Pair(context.Background()) })
	require.True(t, domain.IsKind(err, domain.KindPairing))
}

func TestPrepare_ParkAndBind(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, f.coord.Prepare(ctx, 3))
	require.Equal(t, 3, f.coord.Registry().Len())
	// Parked handles are reused by later pairings, so the idle count depends
	// on how the concurrent attempts interleaved.
	idle := f.pool.Encoders.Size()
	require.GreaterOrEqual(t, idle, 1)

	p, ok := f.coord.Registry().Acquire()
	require.True(t, ok)
	require.False(t, p.HasLiveState())
	require.NoError(t, f.coord.Bind(ctx, p))
	require.True(t, p.HasLiveState())
	require.Equal(t, idle-1, f.pool.Encoders.Size())

	_, st := f.engine.Encode(p.Encoder, []byte("x"))
	require.Equal(t, domain.StatusSuccess, st)
	require.NoError(t, f.coord.Park(ctx, p))
	require.False(t, p.HasLiveState())
	require.Equal(t, domain.PairIdle, p.Status)
	require.Equal(t, idle, f.pool.Encoders.Size())
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()
	durable := store.NewMemoryMedium()
	f := newFixture(t, durable, nil, nil)
	require.NoError(t, f.coord.Prepare(ctx, 2))

	// A second coordinator over the same repository sees the same pairs.
	lg := log.Discard().GetLogger("pairing_test")
	again := pairing.New("https://api.example.test", pairing.Deps{
		Agent:     f.agent,
		Engine:    f.engine,
		Pool:      pool.NewEnginePool(f.engine, lg),
		Transport: f.relay,
		Repo:      f.repo,
		Log:       lg,
	})
	n, err := again.Rehydrate(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, f.coord.ClientID(), again.ClientID())
	require.ElementsMatch(t, f.coord.Registry().IDs(), again.Registry().IDs())

	p, ok := again.Registry().Acquire()
	require.True(t, ok)
	require.NoError(t, again.Bind(ctx, p))

	// Unknown scope: nothing to restore.
	other := pairing.New("https://other.example.test", pairing.Deps{Repo: f.repo, Log: lg})
	n, err = other.Rehydrate(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBind_MissingStateReturnsHandles(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	p := &domain.PairSession{PairID: "ghost", Status: domain.PairBusy}
	err := f.coord.Bind(context.Background(), p)
	require.True(t, domain.IsKind(err, domain.KindNotFound))
	require.False(t, p.HasLiveState())
	require.Equal(t, 1, f.pool.Encoders.Size())
	require.Equal(t, 1, f.pool.Decoders.Size())
}

package pairing

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/crypto"
	"mterelay/internal/domain"
	"mterelay/internal/instrument"
	"mterelay/internal/log"
	"mterelay/internal/pool"
)

// Coordinator pairs with one relay endpoint and moves pair state between
// engine handles and the state repository.
type Coordinator struct {
	agent     *crypto.Agent
	engine    domain.CipherEngine
	pool      *pool.EnginePool
	transport domain.RelayTransport
	repo      domain.StateRepository
	registry  *Registry
	scope     string
	log       *logging.Logger

	mu       sync.Mutex
	clientID domain.ClientID

	indexMu sync.Mutex
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Agent     *crypto.Agent
	Engine    domain.CipherEngine
	Pool      *pool.EnginePool
	Transport domain.RelayTransport
	Repo      domain.StateRepository
	Registry  *Registry
	Log       *logging.Logger
}

// New returns a Coordinator. scope names the endpoint in repository keys.
func New(scope string, d Deps) *Coordinator {
	reg := d.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	lg := d.Log
	if lg == nil {
		lg = log.Discard().GetLogger("pairing")
	}
	return &Coordinator{
		agent:     d.Agent,
		engine:    d.Engine,
		pool:      d.Pool,
		transport: d.Transport,
		repo:      d.Repo,
		registry:  reg,
		scope:     scope,
		log:       lg,
	}
}

// Registry returns the pairs this coordinator registered.
func (c *Coordinator) Registry() *Registry { return c.registry }

// ClientID returns the id the relay assigned, empty before first contact.
func (c *Coordinator) ClientID() domain.ClientID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Pair runs one pairing attempt and registers the result busy, owned by
// the caller. The returned session holds live handles.
//
// Steps:
//  1. Generate an encoder-side and a decoder-side key pair and two
//     personalization strings.
//  2. Post both public keys to the relay.
//  3. Derive a shared secret against each relay key and unwrap the relay's
//     secrets with them.
//  4. Check out an encoder and a decoder and initialize them.
//  5. Persist both states and the pair index, then register the pair.
func (c *Coordinator) Pair(ctx context.Context) (_ *domain.PairSession, err error) {
	reached := StepUnpaired
	defer func() {
		if err != nil {
			instrument.PairingFailed()
			c.log.Warningf("pairing with %s failed after %s: %v", c.scope, reached, err)
			err = domain.WrapError(domain.KindPairing, "pairing.Pair", &Failure{Reached: reached, Err: err})
		}
	}()

	// Step 1.
	encKeys, err := c.agent.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer encKeys.Wipe()
	decKeys, err := c.agent.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer decKeys.Wipe()
	encPers, decPers := uuid.NewString(), uuid.NewString()
	reached = StepKeysGenerated

	// Step 2.
	resp, clientID, err := c.transport.Pair(ctx, c.ClientID(), domain.PairRequest{
		EncoderPublicKey:          crypto.B64(encKeys.Public),
		EncoderPersonalizationStr: encPers,
		DecoderPublicKey:          crypto.B64(decKeys.Public),
		DecoderPersonalizationStr: decPers,
	})
	if err != nil {
		return nil, err
	}
	if resp.PairID == "" {
		return nil, domain.NewError(domain.KindProtocol, "pairing.Pair", "relay returned no pair id")
	}
	c.SetClientID(clientID)
	reached = StepSentToRelay

	// Step 3.
	encMagic, err := c.unwrap(encKeys, resp.EncoderPublicKey, encPers, resp.EncoderSecret, resp.EncoderNonce)
	if err != nil {
		return nil, err
	}
	defer encMagic.Wipe()
	decMagic, err := c.unwrap(decKeys, resp.DecoderPublicKey, decPers, resp.DecoderSecret, resp.DecoderNonce)
	if err != nil {
		return nil, err
	}
	defer decMagic.Wipe()
	reached = StepSecretDerived

	// Step 4.
	enc, dec, err := c.initHandles(encMagic, decMagic)
	if err != nil {
		return nil, err
	}
	reached = StepEngineInitialized

	// Step 5.
	p := &domain.PairSession{
		PairID:  domain.PairID(resp.PairID),
		Encoder: enc,
		Decoder: dec,
		Status:  domain.PairBusy,
	}
	if err := c.SaveStates(ctx, p); err != nil {
		c.releaseHandles(p)
		c.forget(ctx, p.PairID)
		return nil, err
	}
	c.registry.Register(p)
	if err := c.saveIndex(ctx); err != nil {
		c.registry.Remove(p.PairID)
		c.releaseHandles(p)
		c.forget(ctx, p.PairID)
		return nil, err
	}
	reached = StepPaired

	instrument.PairingCompleted()
	c.log.Debugf("paired %s as %s, encoder key %s", c.scope, p.PairID, crypto.Fingerprint(encKeys.Public))
	return p, nil
}

// Prepare runs n pairing attempts and leaves every pair idle. Without a
// client id the first attempt runs alone so the relay assigns exactly one;
// the rest run concurrently.
func (c *Coordinator) Prepare(ctx context.Context, n int) error {
	if n > 0 && c.ClientID() == "" {
		p, err := c.Pair(ctx)
		if err != nil {
			return err
		}
		if err := c.Park(ctx, p); err != nil {
			return err
		}
		n--
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			p, err := c.Pair(gctx)
			if err != nil {
				return err
			}
			return c.Park(gctx, p)
		})
	}
	return g.Wait()
}

// SetClientID adopts id. An empty id is ignored.
func (c *Coordinator) SetClientID(id domain.ClientID) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.clientID = id
	c.mu.Unlock()
}

func (c *Coordinator) unwrap(
	local domain.KeyPair,
	relayPublic, personalization, secret, nonce string,
) (domain.MagicValues, error) {
	peer, err := crypto.FromB64(relayPublic)
	if err != nil {
		return domain.MagicValues{}, domain.WrapError(domain.KindProtocol, "pairing.unwrap", err)
	}
	shared, err := c.agent.DeriveSharedSecret(local.Private, peer)
	if err != nil {
		return domain.MagicValues{}, err
	}
	defer shared.Wipe()
	entropy, err := crypto.Unwrap(shared, personalization, secret)
	if err != nil {
		return domain.MagicValues{}, domain.WrapError(domain.KindKeyAgreement, "pairing.unwrap", err)
	}
	return domain.MagicValues{Entropy: entropy, Nonce: nonce, Personalization: personalization}, nil
}

// initHandles checks out and initializes one handle of each kind. A handle
// whose initialization failed is dropped; the other goes back to the pool.
func (c *Coordinator) initHandles(encMagic, decMagic domain.MagicValues) (domain.Handle, domain.Handle, error) {
	enc, err := c.pool.Encoders.Checkout()
	if err != nil {
		return nil, nil, err
	}
	dec, err := c.pool.Decoders.Checkout()
	if err != nil {
		c.pool.Encoders.Return(enc)
		return nil, nil, err
	}
	if st := c.engine.Initialize(enc, encMagic); st != domain.StatusSuccess {
		c.pool.Decoders.Return(dec)
		return nil, nil, domain.StatusError("pairing.initialize encoder", st, c.engine.StatusName(st))
	}
	if st := c.engine.Initialize(dec, decMagic); st != domain.StatusSuccess {
		c.pool.Encoders.Return(enc)
		return nil, nil, domain.StatusError("pairing.initialize decoder", st, c.engine.StatusName(st))
	}
	return enc, dec, nil
}

func (c *Coordinator) releaseHandles(p *domain.PairSession) {
	if p.Encoder != nil {
		c.pool.Encoders.Return(p.Encoder)
		p.Encoder = nil
	}
	if p.Decoder != nil {
		c.pool.Decoders.Return(p.Decoder)
		p.Decoder = nil
	}
}

func (c *Coordinator) clientIDName() string { return "clientId:" + c.scope }

func (c *Coordinator) indexName() string { return "pairs:" + c.scope }

func (c *Coordinator) stateName(kind domain.HandleKind, id domain.PairID) string {
	return kind.String() + ":" + c.scope + ":" + id.String()
}

// saveIndex records the client id and the registered pair ids.
func (c *Coordinator) saveIndex(ctx context.Context) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if err := c.repo.Write(ctx, c.clientIDName(), c.ClientID().String(), true); err != nil {
		return err
	}
	ids := c.registry.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return c.repo.Write(ctx, c.indexName(), strings.Join(parts, ","), true)
}

func (c *Coordinator) forget(ctx context.Context, id domain.PairID) {
	_ = c.repo.Remove(ctx, c.stateName(domain.EncoderKind, id), true)
	_ = c.repo.Remove(ctx, c.stateName(domain.DecoderKind, id), true)
}

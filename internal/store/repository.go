package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/domain"
)

const (
	// DefaultCategory scopes relay state within a medium.
	DefaultCategory = "mte-relay-state"

	entropySize = 32
)

// Options tune a Repository.
type Options struct {
	// Category scopes every key. Empty means DefaultCategory.
	Category string
	// Seed, when set, replaces fresh entropy and nonce at Init.
	Seed *Seed
	Log  *logging.Logger
}

// Repository is the secure state repository. It is safe for concurrent use.
type Repository struct {
	engine   domain.CipherEngine
	session  domain.StorageMedium
	durable  domain.StorageMedium
	category string
	log      *logging.Logger

	mu        sync.RWMutex
	seed      *Seed
	sessionSt domain.SecureStorage
	durableSt domain.SecureStorage
}

// NewRepository binds engine to the session-scoped and durable media.
func NewRepository(engine domain.CipherEngine, session, durable domain.StorageMedium, opts Options) *Repository {
	r := &Repository{
		engine:   engine,
		session:  session,
		durable:  durable,
		category: opts.Category,
		log:      opts.Log,
	}
	if r.category == "" {
		r.category = DefaultCategory
	}
	if opts.Seed != nil {
		r.seed = &Seed{Entropy: append([]byte(nil), opts.Seed.Entropy...), Nonce: opts.Seed.Nonce}
	}
	return r
}

// Init derives storage for both media. Calling it again is a no-op.
func (r *Repository) Init(ctx context.Context) error {
	const op = "store.Init"
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.KindRepositoryOperation, op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionSt != nil {
		return nil
	}

	seed := r.seed
	if seed == nil {
		seed = &Seed{Entropy: make([]byte, entropySize), Nonce: nextNonce(time.Now())}
		if _, err := rand.Read(seed.Entropy); err != nil {
			return domain.WrapError(domain.KindRepositoryOperation, op, err)
		}
	}

	sessionSt, st := r.engine.InitStorage(r.category, seed.Entropy, seed.Nonce, r.session)
	if st != domain.StatusSuccess {
		return domain.NewError(domain.KindRepositoryOperation, op, "session storage: "+r.engine.StatusName(st))
	}
	durableSt, st := r.engine.InitStorage(r.category, seed.Entropy, seed.Nonce, r.durable)
	if st != domain.StatusSuccess {
		return domain.NewError(domain.KindRepositoryOperation, op, "durable storage: "+r.engine.StatusName(st))
	}

	r.seed, r.sessionSt, r.durableSt = seed, sessionSt, durableSt
	if r.log != nil {
		r.log.Debugf("state repository ready, category %q nonce %s", r.category, seed.Nonce)
	}
	return nil
}

// Seed returns a copy of the entropy and nonce in use, or nil before Init.
func (r *Repository) Seed() *Seed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sessionSt == nil {
		return nil
	}
	return &Seed{Entropy: append([]byte(nil), r.seed.Entropy...), Nonce: r.seed.Nonce}
}

func (r *Repository) storage(op string, persistent bool) (domain.SecureStorage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.sessionSt == nil {
		return nil, domain.NewError(domain.KindRepositoryNotInitialized, op, "repository used before Init")
	}
	if persistent {
		return r.durableSt, nil
	}
	return r.sessionSt, nil
}

// Write conceals data under name.
func (r *Repository) Write(ctx context.Context, name, data string, persistent bool) error {
	const op = "store.Write"
	s, err := r.storage(op, persistent)
	if err != nil {
		return err
	}
	if st := s.WriteString(ctx, name, data); st != domain.StatusSuccess {
		return domain.NewError(domain.KindRepositoryOperation, op, name+": "+r.engine.StatusName(st))
	}
	return nil
}

// Read reveals the value stored under name. An absent entry, or one that no
// longer verifies, is KindNotFound.
func (r *Repository) Read(ctx context.Context, name string, persistent bool) (string, error) {
	const op = "store.Read"
	s, err := r.storage(op, persistent)
	if err != nil {
		return "", err
	}
	v, st := s.ReadString(ctx, name)
	switch st {
	case domain.StatusSuccess:
		return v, nil
	case domain.StatusNotFound, domain.StatusDecodeFailed:
		return "", domain.NewError(domain.KindNotFound, op, name)
	default:
		return "", domain.NewError(domain.KindRepositoryOperation, op, name+": "+r.engine.StatusName(st))
	}
}

// Remove deletes name. Removing an absent entry succeeds.
func (r *Repository) Remove(ctx context.Context, name string, persistent bool) error {
	const op = "store.Remove"
	s, err := r.storage(op, persistent)
	if err != nil {
		return err
	}
	if st := s.Remove(ctx, name); st != domain.StatusSuccess {
		return domain.NewError(domain.KindRepositoryOperation, op, name+": "+r.engine.StatusName(st))
	}
	return nil
}

var _ domain.StateRepository = (*Repository)(nil)

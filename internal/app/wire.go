package app

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/crypto"
	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/log"
	"mterelay/internal/pool"
	"mterelay/internal/relay"
	"mterelay/internal/services/pairing"
	"mterelay/internal/services/session"
	"mterelay/internal/store"
)

const (
	stateDBFile = "state.db"
	seedFile    = "seed.enc"
)

// Wire bundles the engine, the shared pool and repository, and one Session
// per configured endpoint.
type Wire struct {
	Config *Config
	Log    *log.Backend
	Engine *engine.Engine
	Pool   *pool.EnginePool
	Repo   *store.Repository
	HTTP   *http.Client

	sessions []*session.Session
	byName   map[string]*session.Session

	bolt       *store.BoltMedium
	seedPath   string
	seedLoaded bool
	metrics    *http.Server
	log        *logging.Logger
}

// NewWire constructs the dependency graph from cfg. cfg must be validated.
func NewWire(cfg *Config) (*Wire, error) {
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}
	w := &Wire{
		Config: cfg,
		Log:    backend,
		HTTP:   &http.Client{Timeout: time.Duration(cfg.Relay.Timeout) * time.Second},
		byName: make(map[string]*session.Session),
		log:    backend.GetLogger("app"),
	}

	e, st := engine.New(cfg.Relay.LicensedCompany, cfg.Relay.LicenseKey)
	if st != domain.StatusSuccess {
		return nil, fmt.Errorf("engine: license check failed: %s", engine.StatusName(st))
	}
	w.Engine = e
	w.Pool = pool.NewEnginePool(e, backend.GetLogger("pool"))

	var durable domain.StorageMedium = store.NewMemoryMedium()
	opts := store.Options{Category: cfg.State.Category, Log: backend.GetLogger("store")}
	defer func() { opts.Seed.Wipe() }()
	if cfg.State.Dir != "" {
		w.bolt, err = store.OpenBoltMedium(filepath.Join(cfg.State.Dir, stateDBFile))
		if err != nil {
			return nil, err
		}
		durable = w.bolt
		w.seedPath = filepath.Join(cfg.State.Dir, seedFile)
		seed, err := store.LoadSeed(w.seedPath, cfg.State.Passphrase)
		if err != nil {
			_ = w.bolt.Close()
			return nil, fmt.Errorf("state seed: %w", err)
		}
		opts.Seed, w.seedLoaded = seed, seed != nil
	}
	w.Repo = store.NewRepository(e, store.NewMemoryMedium(), durable, opts)

	agent := crypto.NewAgent(crypto.NewECDHProvider())
	sopts := session.Options{
		ClientID:          domain.ClientID(cfg.Relay.ClientID),
		ConcurrentPairs:   cfg.Relay.ConcurrentPairs,
		CachedPairs:       cfg.Relay.CachedPairs,
		EncodeURL:         cfg.Relay.EncodeURL,
		EncodeBody:        *cfg.Relay.EncodeBody,
		HeaderDisposition: cfg.Relay.HeaderDisposition,
		HeadersToEncode:   cfg.Relay.HeadersToEncode,
		EncodeType:        cfg.Relay.Mode(),
	}
	for _, ep := range cfg.Endpoint {
		base, err := url.Parse(ep.URL)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
		sopts := sopts
		sopts.Endpoint = base
		transport := relay.NewHTTP(ep.URL, w.HTTP)
		coord := pairing.New(ep.URL, pairing.Deps{
			Agent:     agent,
			Engine:    e,
			Pool:      w.Pool,
			Transport: transport,
			Repo:      w.Repo,
			Log:       backend.GetLogger("pairing/" + ep.Name),
		})
		s := session.New(ep.Name, sopts, coord, e, w.Pool, w.Repo, transport, backend.GetLogger("session/"+ep.Name))
		w.sessions = append(w.sessions, s)
		w.byName[ep.Name] = s
	}
	return w, nil
}

// Sessions returns the sessions in configuration order.
func (w *Wire) Sessions() []*session.Session { return w.sessions }

// Session returns the session for the endpoint called name. An empty name
// selects the first endpoint.
func (w *Wire) Session(name string) (*session.Session, error) {
	if name == "" {
		return w.sessions[0], nil
	}
	s, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("no endpoint named %q", name)
	}
	return s, nil
}

// Client returns an http.Client whose requests go through the named
// endpoint's session.
func (w *Wire) Client(name string) (*http.Client, error) {
	s, err := w.Session(name)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: s, Timeout: w.HTTP.Timeout}, nil
}

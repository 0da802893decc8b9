package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"mterelay/internal/domain"
	"mterelay/internal/store"
)

const (
	defaultLogLevel        = "NOTICE"
	defaultConcurrentPairs = 5
	defaultCachedPairs     = 5
	defaultTimeout         = 30
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool
	// File is the log file; empty logs to stdout.
	File string
	// Level is one of ERROR, WARNING, NOTICE, INFO, DEBUG.
	Level string
}

func (l *Logging) validate() {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
}

// Relay is the relay client configuration shared by every endpoint.
type Relay struct {
	// ClientID is used until the relay assigns one.
	ClientID        string
	LicensedCompany string
	LicenseKey      string

	// ConcurrentPairs is how many pairs are established per endpoint at
	// startup.
	ConcurrentPairs int
	// CachedPairs is how many handles of each kind are created up front.
	CachedPairs int

	EncodeURL         bool
	EncodeBody        *bool
	HeaderDisposition domain.HeaderDisposition
	HeadersToEncode   []string
	// EncodeType is "MKE" (default) or "MTE".
	EncodeType string
	// Timeout bounds each relay round trip, in seconds.
	Timeout int

	encodeType domain.EncodeType
}

func (r *Relay) validate() error {
	if r.ConcurrentPairs <= 0 {
		r.ConcurrentPairs = defaultConcurrentPairs
	}
	if r.CachedPairs <= 0 {
		r.CachedPairs = defaultCachedPairs
	}
	if r.Timeout <= 0 {
		r.Timeout = defaultTimeout
	}
	if r.EncodeBody == nil {
		t := true
		r.EncodeBody = &t
	}
	if r.LicenseKey != "" && r.LicensedCompany == "" {
		return errors.New("config: Relay: LicenseKey set without LicensedCompany")
	}
	if r.HeaderDisposition == domain.EncodeListOfHeaders && len(r.HeadersToEncode) == 0 {
		return errors.New("config: Relay: EncodeListOfHeaders needs HeadersToEncode")
	}
	et, err := domain.ParseEncodeType(r.EncodeType)
	if err != nil {
		return fmt.Errorf("config: Relay: %w", err)
	}
	r.encodeType = et
	return nil
}

// Mode returns the parsed EncodeType.
func (r *Relay) Mode() domain.EncodeType { return r.encodeType }

// Endpoint is one protected upstream reached through a relay.
type Endpoint struct {
	Name string
	URL  string
}

// State configures where engine state is kept.
type State struct {
	// Dir holds the durable state database and its seed. Empty keeps all
	// state in memory.
	Dir string
	// Category scopes repository keys.
	Category string
	// Passphrase seals the seed file. Required with Dir.
	Passphrase string
}

func (s *State) validate() error {
	if s.Category == "" {
		s.Category = store.DefaultCategory
	}
	if s.Dir != "" && s.Passphrase == "" {
		return errors.New("config: State: Dir set without Passphrase")
	}
	return nil
}

// Metrics configures the prometheus listener.
type Metrics struct {
	// Address, e.g. "127.0.0.1:9100". Empty disables the listener.
	Address string
}

// Config is the top level configuration.
type Config struct {
	Logging  *Logging
	Relay    *Relay
	Endpoint []*Endpoint
	State    *State
	Metrics  *Metrics
}

// Validate fills in defaults and checks cfg.
func (c *Config) Validate() error {
	if c.Logging == nil {
		c.Logging = &Logging{}
	}
	c.Logging.validate()
	if c.Relay == nil {
		c.Relay = &Relay{}
	}
	if err := c.Relay.validate(); err != nil {
		return err
	}
	if c.State == nil {
		c.State = &State{}
	}
	if err := c.State.validate(); err != nil {
		return err
	}
	if c.Metrics == nil {
		c.Metrics = &Metrics{}
	}

	if len(c.Endpoint) == 0 {
		return errors.New("config: no Endpoint blocks were present")
	}
	seen := make(map[string]bool)
	for i, e := range c.Endpoint {
		if e == nil {
			return fmt.Errorf("config: Endpoint %d is empty", i)
		}
		u, err := url.Parse(e.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: Endpoint %d: bad URL %q", i, e.URL)
		}
		e.URL = strings.TrimRight(e.URL, "/")
		if e.Name == "" {
			e.Name = u.Host
		}
		if seen[e.Name] {
			return fmt.Errorf("config: duplicate Endpoint %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: no nil buffer as config file")
	}
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

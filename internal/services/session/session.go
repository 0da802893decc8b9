package session

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/domain"
	"mterelay/internal/header"
	"mterelay/internal/instrument"
	"mterelay/internal/log"
	"mterelay/internal/pool"
	"mterelay/internal/protocol"
	"mterelay/internal/services/pairing"
)

// Options select what a Session protects.
type Options struct {
	// Endpoint is the relay base URL. Requests must target it; a path
	// prefix on it is kept in front of an encoded route.
	Endpoint          *url.URL
	ClientID          domain.ClientID
	ConcurrentPairs   int
	CachedPairs       int
	EncodeURL         bool
	EncodeBody        bool
	HeaderDisposition domain.HeaderDisposition
	HeadersToEncode   []string
	EncodeType        domain.EncodeType
}

// Session protects requests to one endpoint.
type Session struct {
	name      string
	opts      Options
	coord     *pairing.Coordinator
	pool      *pool.EnginePool
	repo      domain.StateRepository
	transport domain.RelayTransport
	codec     protocol.Codec
	log       *logging.Logger
}

// New returns a Session for the endpoint called name. The pool and the
// repository are typically shared by every Session of a process.
func New(
	name string,
	opts Options,
	coord *pairing.Coordinator,
	engine domain.CipherEngine,
	pool *pool.EnginePool,
	repo domain.StateRepository,
	transport domain.RelayTransport,
	lg *logging.Logger,
) *Session {
	if lg == nil {
		lg = log.Discard().GetLogger("session")
	}
	return &Session{
		name:      name,
		opts:      opts,
		coord:     coord,
		pool:      pool,
		repo:      repo,
		transport: transport,
		codec:     protocol.Codec{Engine: engine},
		log:       lg,
	}
}

// Name returns the endpoint name.
func (s *Session) Name() string { return s.name }

// Setup initializes the repository, warms the pool and restores the pairs
// recorded for this endpoint. With nothing to restore it pre-pairs
// ConcurrentPairs pairs.
func (s *Session) Setup(ctx context.Context) error {
	if err := s.repo.Init(ctx); err != nil {
		return err
	}
	if err := s.pool.Fill(s.opts.CachedPairs); err != nil {
		return err
	}
	n, err := s.coord.Rehydrate(ctx)
	if err != nil {
		return err
	}
	if s.coord.ClientID() == "" {
		s.coord.SetClientID(s.opts.ClientID)
	}
	if n > 0 {
		s.log.Infof("%s: restored %d pairs for client %s", s.name, n, s.coord.ClientID())
		return nil
	}
	if err := s.coord.Prepare(ctx, s.opts.ConcurrentPairs); err != nil {
		return err
	}
	s.log.Infof("%s: paired %d times as client %s", s.name, s.opts.ConcurrentPairs, s.coord.ClientID())
	return nil
}

// Prepare adds n pairs.
func (s *Session) Prepare(ctx context.Context, n int) error { return s.coord.Prepare(ctx, n) }

// PoolCount reports the idle decoder count.
func (s *Session) PoolCount() int { return s.pool.Count() }

// Pairs reports the registered pair count.
func (s *Session) Pairs() int { return s.coord.Registry().Len() }

// ClientID returns the relay-assigned client id.
func (s *Session) ClientID() domain.ClientID { return s.coord.ClientID() }

// acquire leases a pair with live handles. A parked pair whose state cannot
// be restored is dropped and replaced by a fresh pairing.
func (s *Session) acquire(ctx context.Context) (*domain.PairSession, error) {
	for {
		p, ok := s.coord.Registry().Acquire()
		if !ok {
			return s.coord.Pair(ctx)
		}
		err := s.coord.Bind(ctx, p)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			s.coord.Registry().Release(p)
			return nil, err
		}
		s.log.Warningf("%s: pair %s unusable, dropping: %v", s.name, p.PairID, err)
		s.coord.Drop(ctx, p.PairID)
	}
}

func (s *Session) park(ctx context.Context, p *domain.PairSession) {
	if err := s.coord.Park(ctx, p); err != nil {
		s.log.Warningf("%s: %v", s.name, err)
	}
}

// RoundTrip protects req, sends it through the relay and opens the
// response. The pair is parked on every exit path.
func (s *Session) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	prefix, err := s.target(req.URL)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	p, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.park(ctx, p)

	out, err := s.protect(ctx, p, req, prefix)
	if err != nil {
		return nil, err
	}
	resp, err := s.transport.Do(ctx, out)
	if err != nil {
		return nil, err
	}
	resp, err = s.open(p, resp)
	if err != nil {
		return nil, err
	}
	instrument.ProtectedRequest()
	return resp, nil
}

// target checks that u lies under the endpoint and returns the endpoint's
// path prefix.
func (s *Session) target(u *url.URL) (string, error) {
	ep := s.opts.Endpoint
	if ep == nil {
		return "", nil
	}
	prefix := strings.TrimRight(ep.EscapedPath(), "/")
	if !strings.EqualFold(u.Scheme, ep.Scheme) || !strings.EqualFold(u.Host, ep.Host) {
		return "", domain.NewError(domain.KindProtocol, "session.RoundTrip",
			"request for "+u.Scheme+"://"+u.Host+" outside endpoint "+s.name)
	}
	if p := u.EscapedPath(); prefix != "" && p != prefix && !strings.HasPrefix(p, prefix+"/") {
		return "", domain.NewError(domain.KindProtocol, "session.RoundTrip",
			"request path "+p+" outside endpoint "+s.name)
	}
	return prefix, nil
}

func cipherErr(op string, err error) error {
	if domain.IsKind(err, domain.KindCipherOperation) {
		instrument.CipherFailure(op)
	}
	return err
}

// protect builds the request that goes on the wire.
func (s *Session) protect(ctx context.Context, p *domain.PairSession, req *http.Request, prefix string) (*http.Request, error) {
	const op = "session.protect"
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, domain.WrapError(domain.KindTransport, op, err)
		}
		body = b
	}

	out := req.Clone(ctx)
	rh := domain.RelayHeader{
		ClientID:   s.coord.ClientID(),
		PairID:     p.PairID,
		EncodeType: s.opts.EncodeType,
	}

	if s.opts.EncodeURL {
		route := strings.TrimPrefix(req.URL.RequestURI(), prefix)
		if !strings.HasPrefix(route, "/") {
			route = "/" + route
		}
		path, err := s.codec.SealRoute(p.Encoder, route)
		if err != nil {
			return nil, cipherErr("encode", err)
		}
		out.URL.Path, out.URL.RawPath, out.URL.RawQuery = prefix+path, "", ""
		rh.URLIsEncoded = true
	}

	if s.opts.HeaderDisposition != domain.EncodeNoHeaders {
		hdrs := protocol.SelectHeaders(req.Header, s.opts.HeaderDisposition, s.opts.HeadersToEncode)
		eh, err := s.codec.SealHeaders(p.Encoder, hdrs)
		if err != nil {
			return nil, cipherErr("encode", err)
		}
		for _, k := range protocol.Names(hdrs) {
			out.Header.Del(k)
		}
		out.Header.Set(header.EncodedHeadersName, eh)
		if len(body) > 0 {
			out.Header.Set("Content-Type", "application/octet-stream")
		}
		rh.HeadersAreEncoded = true
	}

	// The flag announces the policy; an empty body stays empty.
	rh.BodyIsEncoded = s.opts.EncodeBody
	if s.opts.EncodeBody && len(body) > 0 {
		sealed, err := s.codec.SealBody(p.Encoder, body)
		if err != nil {
			return nil, cipherErr("encode", err)
		}
		body = sealed
	}

	setBody(out, body)
	out.Header.Set(header.Name, header.Encode(rh))
	return out, nil
}

func setBody(r *http.Request, body []byte) {
	r.ContentLength = int64(len(body))
	if len(body) == 0 {
		r.Body, r.GetBody = http.NoBody, nil
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
}

// open decodes resp in place. On failure resp is closed and nothing of it
// is returned.
func (s *Session) open(p *domain.PairSession, resp *http.Response) (*http.Response, error) {
	const op = "session.open"
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, domain.WrapError(domain.KindTransport, op, err)
	}

	v := resp.Header.Get(header.Name)
	if v == "" {
		return nil, domain.NewError(domain.KindProtocol, op, "response carries no "+header.Name+" header")
	}
	rh, err := header.Decode(v)
	if err != nil {
		return nil, err
	}
	if rh.PairID != p.PairID {
		return nil, domain.NewError(domain.KindProtocol, op, "response for pair "+rh.PairID.String()+", sent on "+p.PairID.String())
	}

	hdr := resp.Header.Clone()
	if rh.HeadersAreEncoded {
		hdrs, err := s.codec.OpenHeaders(p.Decoder, hdr.Get(header.EncodedHeadersName))
		if err != nil {
			return nil, cipherErr("decode", err)
		}
		for k, v := range hdrs {
			hdr.Set(k, v)
		}
	}
	body := raw
	if rh.BodyIsEncoded && len(raw) > 0 {
		if body, err = s.codec.OpenBody(p.Decoder, raw); err != nil {
			return nil, cipherErr("decode", err)
		}
	}

	hdr.Del(header.Name)
	hdr.Del(header.EncodedHeadersName)
	hdr.Set("Content-Length", strconv.Itoa(len(body)))
	resp.Header = hdr
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

var _ http.RoundTripper = (*Session)(nil)

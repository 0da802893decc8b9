package relay

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"mterelay/internal/crypto"
	"mterelay/internal/domain"
	"mterelay/internal/header"
	"mterelay/internal/protocol"
	"mterelay/internal/util/memzero"
)

const (
	entropySize = 32
	maxBody     = 8 << 20
)

type pairKey struct {
	client domain.ClientID
	pair   domain.PairID
}

// serverPair is the relay's half of a pairing: its decoder opens what the
// client's encoder produced and its encoder feeds the client's decoder.
type serverPair struct {
	mu  sync.Mutex
	enc domain.Handle
	dec domain.Handle
}

// Server is a reference relay.
type Server struct {
	engine   domain.CipherEngine
	agent    *crypto.Agent
	upstream http.Handler
	codec    protocol.Codec
	log      *logging.Logger

	mu    sync.RWMutex
	pairs map[pairKey]*serverPair
}

// NewServer returns a relay forwarding opened requests to upstream.
func NewServer(engine domain.CipherEngine, agent *crypto.Agent, upstream http.Handler, log *logging.Logger) *Server {
	return &Server{
		engine:   engine,
		agent:    agent,
		upstream: upstream,
		codec:    protocol.Codec{Engine: engine},
		log:      log,
		pairs:    make(map[pairKey]*serverPair),
	}
}

// Pairs reports the number of live pairings.
func (s *Server) Pairs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == PairPath && r.Method == http.MethodPost {
		s.handlePair(w, r)
		return
	}
	s.handleProtected(w, r)
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	clientID := domain.ClientID("")
	if raw := r.Header.Get(header.Name); raw != "" {
		rh, err := header.Decode(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		clientID = rh.ClientID
	}
	if clientID == "" {
		clientID = domain.ClientID(uuid.NewString())
	}

	var req domain.PairRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		http.Error(w, "bad pairing request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.EncoderPublicKey == "" || req.DecoderPublicKey == "" {
		http.Error(w, "missing public key", http.StatusBadRequest)
		return
	}

	p := &serverPair{}
	// The client's encoder talks to our decoder and vice versa.
	decSide, err := s.pairSide(s.engine.MakeDecoder, req.EncoderPublicKey, req.EncoderPersonalizationStr)
	if err != nil {
		s.log.Warningf("pairing for client %s failed: %v", clientID, err)
		http.Error(w, "pairing failed", http.StatusBadRequest)
		return
	}
	encSide, err := s.pairSide(s.engine.MakeEncoder, req.DecoderPublicKey, req.DecoderPersonalizationStr)
	if err != nil {
		s.log.Warningf("pairing for client %s failed: %v", clientID, err)
		http.Error(w, "pairing failed", http.StatusBadRequest)
		return
	}
	p.dec, p.enc = decSide.handle, encSide.handle

	pairID := domain.PairID(uuid.NewString())
	s.mu.Lock()
	s.pairs[pairKey{clientID, pairID}] = p
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(header.Name, header.Encode(domain.RelayHeader{
		ClientID:   clientID,
		PairID:     pairID,
		EncodeType: domain.EncodeMKE,
	}))
	_ = json.NewEncoder(w).Encode(domain.PairResponse{
		PairID:           pairID.String(),
		EncoderSecret:    decSide.secret,
		EncoderNonce:     decSide.nonce,
		DecoderSecret:    encSide.secret,
		DecoderNonce:     encSide.nonce,
		EncoderPublicKey: decSide.public,
		DecoderPublicKey: encSide.public,
	})
	s.log.Debugf("paired client %s pair %s, relay decoder key %s", clientID, pairID, fingerprint(decSide.public))
}

func fingerprint(b64 string) string {
	raw, err := crypto.FromB64(b64)
	if err != nil {
		return "?"
	}
	return crypto.Fingerprint(raw)
}

type side struct {
	handle domain.Handle
	secret string
	nonce  string
	public string
}

// pairSide agrees a secret with one client key, wraps fresh entropy under
// it and initializes a local handle with the same magic values.
func (s *Server) pairSide(
	newHandle func() (domain.Handle, domain.Status),
	peerPublic, personalization string,
) (side, error) {
	peer, err := crypto.FromB64(peerPublic)
	if err != nil {
		return side{}, domain.WrapError(domain.KindProtocol, "relay.pairSide", err)
	}
	kp, err := s.agent.GenerateKeyPair()
	if err != nil {
		return side{}, err
	}
	defer kp.Wipe()
	shared, err := s.agent.DeriveSharedSecret(kp.Private, peer)
	if err != nil {
		return side{}, err
	}
	defer shared.Wipe()

	magic := domain.MagicValues{Entropy: make([]byte, entropySize), Personalization: personalization}
	defer magic.Wipe()
	var n [8]byte
	if _, err := rand.Read(magic.Entropy); err != nil {
		return side{}, err
	}
	if _, err := rand.Read(n[:]); err != nil {
		return side{}, err
	}
	magic.Nonce = strconv.FormatUint(binary.BigEndian.Uint64(n[:]), 10)

	wrapped, err := crypto.Wrap(shared, personalization, magic.Entropy)
	if err != nil {
		return side{}, domain.WrapError(domain.KindKeyAgreement, "relay.pairSide", err)
	}
	h, st := newHandle()
	if st != domain.StatusSuccess {
		return side{}, domain.StatusError("relay.pairSide", st, s.engine.StatusName(st))
	}
	if st := s.engine.Initialize(h, magic); st != domain.StatusSuccess {
		return side{}, domain.StatusError("relay.pairSide", st, s.engine.StatusName(st))
	}
	return side{handle: h, secret: wrapped, nonce: magic.Nonce, public: crypto.B64(kp.Public)}, nil
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	rh, err := header.Decode(r.Header.Get(header.Name))
	if err != nil || rh.ClientID == "" || rh.PairID == "" {
		http.Error(w, "missing or malformed "+header.Name, http.StatusBadRequest)
		return
	}
	s.mu.RLock()
	p, ok := s.pairs[pairKey{rh.ClientID, rh.PairID}]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown pair", http.StatusUnauthorized)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := s.open(p, rh, r); err != nil {
		s.log.Warningf("pair %s: %v", rh.PairID, err)
		http.Error(w, "cannot decode request", http.StatusBadRequest)
		return
	}

	rec := newBufferedResponse()
	defer rec.wipe()
	s.upstream.ServeHTTP(rec, r)

	hdr, body, err := s.seal(p, rh, rec)
	if err != nil {
		s.log.Errorf("pair %s: %v", rh.PairID, err)
		http.Error(w, "cannot encode response", http.StatusInternalServerError)
		return
	}
	for k, v := range hdr {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.status)
	if _, err := w.Write(body); err != nil && !errors.Is(err, http.ErrBodyNotAllowed) {
		s.log.Debugf("pair %s: write response: %v", rh.PairID, err)
	}
}

// open rewrites r in place to the request the client originally built.
func (s *Server) open(p *serverPair, rh domain.RelayHeader, r *http.Request) error {
	if rh.URLIsEncoded {
		route, err := s.codec.OpenRoute(p.dec, r.URL.Path)
		if err != nil {
			return err
		}
		u, err := url.ParseRequestURI(route)
		if err != nil {
			return domain.WrapError(domain.KindProtocol, "relay.open", err)
		}
		r.URL.Path, r.URL.RawPath, r.URL.RawQuery = u.Path, u.RawPath, u.RawQuery
		r.RequestURI = u.RequestURI()
	}
	if rh.HeadersAreEncoded {
		hdrs, err := s.codec.OpenHeaders(p.dec, r.Header.Get(header.EncodedHeadersName))
		if err != nil {
			return err
		}
		for k, v := range hdrs {
			r.Header.Set(k, v)
		}
	}
	if rh.BodyIsEncoded {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return domain.WrapError(domain.KindTransport, "relay.open", err)
		}
		var body []byte
		if len(raw) > 0 {
			if body, err = s.codec.OpenBody(p.dec, raw); err != nil {
				return err
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	r.Header.Del(header.Name)
	r.Header.Del(header.EncodedHeadersName)
	return nil
}

// seal protects rec the same way the request was protected.
func (s *Server) seal(p *serverPair, rh domain.RelayHeader, rec *bufferedResponse) (http.Header, []byte, error) {
	out := domain.RelayHeader{
		ClientID:   rh.ClientID,
		PairID:     rh.PairID,
		EncodeType: rh.EncodeType,
	}
	body := rec.body.Bytes()
	hdr := rec.Header().Clone()

	if rh.HeadersAreEncoded {
		selected := protocol.SelectHeaders(hdr, domain.EncodeAllHeaders, nil)
		eh, err := s.codec.SealHeaders(p.enc, selected)
		if err != nil {
			return nil, nil, err
		}
		for _, k := range protocol.Names(selected) {
			hdr.Del(k)
		}
		hdr.Set(header.EncodedHeadersName, eh)
		hdr.Set("Content-Type", "application/octet-stream")
		out.HeadersAreEncoded = true
	}
	out.BodyIsEncoded = rh.BodyIsEncoded
	if rh.BodyIsEncoded && len(body) > 0 {
		sealed, err := s.codec.SealBody(p.enc, body)
		if err != nil {
			return nil, nil, err
		}
		body = sealed
	}
	hdr.Set(header.Name, header.Encode(out))
	hdr.Set("Content-Length", strconv.Itoa(len(body)))
	return hdr, body, nil
}

// bufferedResponse collects the upstream response so it can be protected
// before anything reaches the client.
type bufferedResponse struct {
	hdr    http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{hdr: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.hdr }

func (b *bufferedResponse) WriteHeader(code int) { b.status = code }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) wipe() { memzero.Zero(b.body.Bytes()) }

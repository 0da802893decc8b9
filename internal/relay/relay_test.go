package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mterelay/internal/crypto"
	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/header"
	"mterelay/internal/log"
	"mterelay/internal/relay"
)

func newServer(t *testing.T) (*relay.Server, *httptest.Server) {
	t.Helper()
	e, st := engine.New("", "")
	require.Equal(t, domain.StatusSuccess, st)
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("upstream"))
	})
	srv := relay.NewServer(e, crypto.NewAgent(crypto.NewECDHProvider()), upstream, log.Discard().GetLogger("relay"))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func request(t *testing.T, agent *crypto.Agent) (domain.PairRequest, domain.KeyPair, domain.KeyPair) {
	t.Helper()
	enc, err := agent.GenerateKeyPair()
	require.NoError(t, err)
	dec, err := agent.GenerateKeyPair()
	require.NoError(t, err)
	return domain.PairRequest{
		EncoderPublicKey:          crypto.B64(enc.Public),
		EncoderPersonalizationStr: "enc-pers",
		DecoderPublicKey:          crypto.B64(dec.Public),
		DecoderPersonalizationStr: "dec-pers",
	}, enc, dec
}

func TestPair_AgainstServer(t *testing.T) {
	srv, ts := newServer(t)
	agent := crypto.NewAgent(crypto.NewECDHProvider())
	c := relay.NewHTTP(ts.URL+"/", ts.Client())
	ctx := context.Background()

	req, enc, _ := request(t, agent)
	resp, clientID, err := c.Pair(ctx, "", req)
	require.NoError(t, err)
	require.NotEmpty(t, clientID)
	require.NotEmpty(t, resp.PairID)
	require.Equal(t, 1, srv.Pairs())

	// The wrapped encoder secret opens under our side of the agreement.
	relayPub, err := crypto.FromB64(resp.EncoderPublicKey)
	require.NoError(t, err)
	shared, err := agent.DeriveSharedSecret(enc.Private, relayPub)
	require.NoError(t, err)
	entropy, err := crypto.Unwrap(shared, "enc-pers", resp.EncoderSecret)
	require.NoError(t, err)
	require.Len(t, entropy, 32)
	require.NotEmpty(t, resp.EncoderNonce)

	// A known client id is kept.
	req, _, _ = request(t, agent)
	_, again, err := c.Pair(ctx, clientID, req)
	require.NoError(t, err)
	require.Equal(t, clientID, again)
	require.Equal(t, 2, srv.Pairs())
}

func TestPair_RejectedIsTransportError(t *testing.T) {
	_, ts := newServer(t)
	c := relay.NewHTTP(ts.URL, nil)

	_, _, err := c.Pair(context.Background(), "", domain.PairRequest{})
	require.True(t, domain.IsKind(err, domain.KindTransport))
	require.Contains(t, err.Error(), "POST /api/mte-pair")
	require.Contains(t, err.Error(), "400")
}

func TestPair_RequestCarriesNullPairID(t *testing.T) {
	var body map[string]any
	var hdr string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Get(header.Name)
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set(header.Name, "assigned")
		_, _ = w.Write([]byte(`{"pairId":"p1"}`))
	}))
	defer ts.Close()

	resp, id, err := relay.NewHTTP(ts.URL, nil).Pair(context.Background(), "c1", domain.PairRequest{EncoderPublicKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "c1", hdr)
	require.Contains(t, body, "pairId")
	require.Nil(t, body["pairId"])
	require.Equal(t, "p1", resp.PairID)
	require.Equal(t, domain.ClientID("assigned"), id)
}

func TestServer_RejectsUnknownPairAndBadHeader(t *testing.T) {
	_, ts := newServer(t)
	c := relay.NewHTTP(ts.URL, nil)
	ctx := context.Background()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/x", nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, req)
	require.True(t, domain.IsKind(err, domain.KindTransport))
	require.Contains(t, err.Error(), "400")

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/x", nil)
	require.NoError(t, err)
	req.Header.Set(header.Name, "c1,nope,1,0,0,0")
	_, err = c.Do(ctx, req)
	require.True(t, domain.IsKind(err, domain.KindTransport))
	require.True(t, strings.Contains(err.Error(), "401"), err.Error())
}

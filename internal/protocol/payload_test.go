package protocol_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/protocol"
)

func pair(t *testing.T) (protocol.Codec, domain.Handle, domain.Handle) {
	t.Helper()
	e, st := engine.New("", "")
	require.Equal(t, domain.StatusSuccess, st)
	enc, st := e.MakeEncoder()
	require.Equal(t, domain.StatusSuccess, st)
	dec, st := e.MakeDecoder()
	require.Equal(t, domain.StatusSuccess, st)
	m := domain.MagicValues{Entropy: make([]byte, 32), Nonce: "1", Personalization: "p"}
	require.Equal(t, domain.StatusSuccess, e.Initialize(enc, m))
	require.Equal(t, domain.StatusSuccess, e.Initialize(dec, m))
	return protocol.Codec{Engine: e}, enc, dec
}

func TestRouteHeadersBody_RoundTrip(t *testing.T) {
	c, enc, dec := pair(t)

	path, err := c.SealRoute(enc, "/api/items?id=7&q=a b")
	require.NoError(t, err)
	require.NotContains(t, path, "items")
	route, err := c.OpenRoute(dec, path)
	require.NoError(t, err)
	require.Equal(t, "/api/items?id=7&q=a b", route)

	in := map[string]string{"Content-Type": "application/json", "X-Trace": "abc"}
	eh, err := c.SealHeaders(enc, in)
	require.NoError(t, err)
	got, err := c.OpenHeaders(dec, eh)
	require.NoError(t, err)
	require.Equal(t, in, got)

	body, err := c.SealBody(enc, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	plain, err := c.OpenBody(dec, body)
	require.NoError(t, err)
	require.Equal(t, `{"hello":"world"}`, string(plain))
}

func TestOpen_Failures(t *testing.T) {
	c, enc, dec := pair(t)

	_, err := c.OpenRoute(dec, "/***")
	require.True(t, domain.IsKind(err, domain.KindProtocol))

	tok, err := c.SealBody(enc, []byte("x"))
	require.NoError(t, err)
	tok[len(tok)-1] ^= 1
	_, err = c.OpenBody(dec, tok)
	require.True(t, domain.IsKind(err, domain.KindCipherOperation))
}

func TestSelectHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("Authorization", "Bearer x")
	h.Set("X-Other", "1")
	h.Set("Content-Length", "10")
	h.Set("x-mte-relay", "c,p,1,0,0,0")

	require.Empty(t, protocol.SelectHeaders(h, domain.EncodeNoHeaders, nil))

	all := protocol.SelectHeaders(h, domain.EncodeAllHeaders, nil)
	require.Equal(t, []string{"Authorization", "Content-Type", "X-Other"}, protocol.Names(all))

	list := protocol.SelectHeaders(h, domain.EncodeListOfHeaders, []string{"authorization", "x-missing"})
	require.Equal(t, map[string]string{"Authorization": "Bearer x", "Content-Type": "text/plain"}, list)
}

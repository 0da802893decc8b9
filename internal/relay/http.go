package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mterelay/internal/domain"
	"mterelay/internal/header"
)

// PairPath is where pairing requests are posted.
const PairPath = "/api/mte-pair"

// HTTP is a relay client.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A nil client uses
// http.DefaultClient.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Base: strings.TrimRight(base, "/"), HTTP: client}
}

// Pair posts req. clientID may be empty on first contact; the relay's id is
// returned either way.
func (c *HTTP) Pair(
	ctx context.Context,
	clientID domain.ClientID,
	req domain.PairRequest,
) (domain.PairResponse, domain.ClientID, error) {
	const op = "relay.Pair"

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		return domain.PairResponse{}, "", domain.WrapError(domain.KindProtocol, op, err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+PairPath, buf)
	if err != nil {
		return domain.PairResponse{}, "", domain.WrapError(domain.KindTransport, op, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		hreq.Header.Set(header.Name, clientID.String())
	}

	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return domain.PairResponse{}, "", domain.WrapError(domain.KindTransport, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return domain.PairResponse{}, "", statusError(op, hreq, resp)
	}

	var out domain.PairResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.PairResponse{}, "", domain.WrapError(domain.KindProtocol, op, err)
	}
	assigned := clientID
	if raw := resp.Header.Get(header.Name); raw != "" {
		rh, err := header.Decode(raw)
		if err != nil {
			return domain.PairResponse{}, "", err
		}
		if rh.ClientID != "" {
			assigned = rh.ClientID
		}
	}
	return out, assigned, nil
}

// Do sends a protected request. A non-2xx answer that does not carry the
// relay header was produced by the relay itself and is returned as an error;
// anything else belongs to the caller.
func (c *HTTP) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	const op = "relay.Do"
	req = req.WithContext(ctx)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.KindTransport, op, err)
	}
	if resp.StatusCode/100 != 2 && resp.Header.Get(header.Name) == "" {
		defer resp.Body.Close()
		return nil, statusError(op, req, resp)
	}
	return resp, nil
}

func statusError(op string, req *http.Request, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	if m := strings.TrimSpace(string(msg)); m != "" {
		err = fmt.Errorf("%w: %s", err, m)
	}
	return domain.WrapError(domain.KindTransport, op, err)
}

var _ domain.RelayTransport = (*HTTP)(nil)

package protocol

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"mterelay/internal/domain"
	"mterelay/internal/header"
)

// Codec drives one engine for payload transforms.
type Codec struct {
	Engine domain.CipherEngine
}

func (c Codec) encode(op string, h domain.Handle, b []byte) ([]byte, error) {
	out, st := c.Engine.Encode(h, b)
	if st != domain.StatusSuccess {
		return nil, domain.StatusError(op, st, c.Engine.StatusName(st))
	}
	return out, nil
}

func (c Codec) decode(op string, h domain.Handle, b []byte) ([]byte, error) {
	out, st := c.Engine.Decode(h, b)
	if st != domain.StatusSuccess {
		return nil, domain.StatusError(op, st, c.Engine.StatusName(st))
	}
	return out, nil
}

// SealRoute encodes route ("/path?query") and returns the replacement path.
func (c Codec) SealRoute(enc domain.Handle, route string) (string, error) {
	tok, err := c.encode("protocol.SealRoute", enc, []byte(route))
	if err != nil {
		return "", err
	}
	return "/" + base64.RawURLEncoding.EncodeToString(tok), nil
}

// OpenRoute reverses SealRoute.
func (c Codec) OpenRoute(dec domain.Handle, path string) (string, error) {
	const op = "protocol.OpenRoute"
	tok, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", domain.WrapError(domain.KindProtocol, op, err)
	}
	route, err := c.decode(op, dec, tok)
	if err != nil {
		return "", err
	}
	return string(route), nil
}

// SealHeaders encodes the JSON form of hdrs for the x-mte-relay-eh header.
func (c Codec) SealHeaders(enc domain.Handle, hdrs map[string]string) (string, error) {
	const op = "protocol.SealHeaders"
	raw, err := json.Marshal(hdrs)
	if err != nil {
		return "", domain.WrapError(domain.KindProtocol, op, err)
	}
	tok, err := c.encode(op, enc, raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(tok), nil
}

// OpenHeaders reverses SealHeaders.
func (c Codec) OpenHeaders(dec domain.Handle, value string) (map[string]string, error) {
	const op = "protocol.OpenHeaders"
	tok, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, domain.WrapError(domain.KindProtocol, op, err)
	}
	raw, err := c.decode(op, dec, tok)
	if err != nil {
		return nil, err
	}
	var hdrs map[string]string
	if err := json.Unmarshal(raw, &hdrs); err != nil {
		return nil, domain.WrapError(domain.KindProtocol, op, err)
	}
	return hdrs, nil
}

// SealBody encodes a body.
func (c Codec) SealBody(enc domain.Handle, body []byte) ([]byte, error) {
	return c.encode("protocol.SealBody", enc, body)
}

// OpenBody decodes a body.
func (c Codec) OpenBody(dec domain.Handle, body []byte) ([]byte, error) {
	return c.decode("protocol.OpenBody", dec, body)
}

// isHop reports headers that never travel inside the encoded header set.
func isHop(k string) bool {
	switch k {
	case "Host", "Content-Length", "Connection", "Transfer-Encoding",
		http.CanonicalHeaderKey(header.Name),
		http.CanonicalHeaderKey(header.EncodedHeadersName):
		return true
	}
	return false
}

// SelectHeaders picks the headers to encode. Content-Type is always part of
// the selection when it is present and disp encodes anything.
func SelectHeaders(h http.Header, disp domain.HeaderDisposition, names []string) map[string]string {
	out := make(map[string]string)
	switch disp {
	case domain.EncodeNoHeaders:
		return out
	case domain.EncodeAllHeaders:
		for k, v := range h {
			if !isHop(k) {
				out[k] = strings.Join(v, ", ")
			}
		}
	case domain.EncodeListOfHeaders:
		for _, n := range names {
			k := http.CanonicalHeaderKey(n)
			if v, ok := h[k]; ok && !isHop(k) {
				out[k] = strings.Join(v, ", ")
			}
		}
	}
	if v := h.Get("Content-Type"); v != "" {
		out["Content-Type"] = v
	}
	return out
}

// Names returns the keys of hdrs in sorted order.
func Names(hdrs map[string]string) []string {
	keys := make([]string, 0, len(hdrs))
	for k := range hdrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

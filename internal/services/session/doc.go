// Package session protects HTTP traffic to one relay endpoint.
//
// A Session is an http.RoundTripper. Each call leases a pair from the
// endpoint's registry (pairing on a miss), binds engine handles to it
// (restoring them from the state repository when the pair was parked),
// encodes the route, the selected headers and the body, forwards the
// request and decodes the response. Afterwards both states go back to the
// repository and both handles go back to the pool, whatever happened to
// the call.
package session

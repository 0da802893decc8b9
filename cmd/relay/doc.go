// Package main runs the reference MTE relay used during development and
// tests. It pairs with clients, opens their protected requests, forwards
// them to an upstream HTTP server and protects the responses.
//
// HTTP API
//
//	POST /api/mte-pair
//	    Pairing request. The x-mte-relay request header may carry a known
//	    client id; the response header carries the id in use. The JSON body
//	    answers with the pair id, both wrapped secrets and nonces and the
//	    relay's public keys.
//
//	* /{anything}
//	    A protected request. The x-mte-relay header names the client and
//	    pair and says which parts are encoded. The path may be a single
//	    encoded segment, x-mte-relay-eh may carry encoded headers and the
//	    body may be an engine token.
//
// Behaviour
//
//   - All pair state is held in memory and lost on process exit.
//   - Unknown pairs answer 401; malformed relay headers or undecodable
//     requests answer 400. Those answers carry no x-mte-relay header.
//   - The default listen address is :8080 and the default upstream is
//     http://127.0.0.1:8081.
package main

// Package relay talks to an MTE relay over HTTP.
//
// HTTP is the client side: it posts pairing requests to {base}/api/mte-pair
// and forwards already protected requests. Server is a reference relay that
// implements the other end of the wire contract: it answers pairing
// requests, opens protected requests, hands them to an upstream
// http.Handler and protects the response on the way back.
//
// All client calls accept a context for cancellation and deadlines. Non-2xx
// statuses from the relay itself are returned as transport errors carrying
// the method, path and status text.
package relay

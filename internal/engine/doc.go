// Package engine is a native implementation of the cipher engine the relay
// client is written against.
//
// An Engine hands out empty Encoder and Decoder handles. Instantiating a
// handle with entropy, nonce and personalization derives its key; from then
// on every Encode produces a sequence-numbered AEAD token and the matching
// Decoder accepts each token at most once within a 64-token window. Handle
// state can be saved to and restored from an opaque base64 string, which is
// what the secure state repository persists between requests.
//
// InitStorage returns the storage variant: named string values sealed under
// a key derived for one category and written through a StorageMedium.
//
// Every operation reports a domain.Status; StatusSuccess is the only value
// callers may treat as success.
package engine

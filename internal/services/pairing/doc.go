// Package pairing establishes encoder/decoder pairs with a relay and keeps
// track of them.
//
// A pairing attempt walks Unpaired → KeysGenerated → SentToRelay →
// SecretDerived → EngineInitialized → Paired. Any failure aborts the whole
// attempt: key material is wiped, handles go back to the pool (or are
// dropped when their initialization failed) and nothing is registered.
//
// Finished pairs live in a Registry, which hands each one to at most one
// caller at a time.
package pairing

// Package store keeps engine state between uses.
//
// A Repository conceals named string values through the engine's secure
// storage and writes them to one of two media: a session-scoped
// MemoryMedium that dies with the process, and a durable medium such as
// BoltMedium. Nothing may be read or written before Init.
//
// The entropy and nonce a Repository was initialized with form its Seed.
// SaveSeed and LoadSeed keep a Seed on disk under a passphrase so a later
// process can read durable entries written by an earlier one.
package store

// Package crypto exposes the key agreement primitives used by the relay
// client.
//
// Contents
//
//   - ECDHProvider, a P-256 KeyAgreementProvider over crypto/ecdh
//   - Agent, which wraps a provider into fixed-size key pairs and 256-bit
//     shared secrets (GenerateKeyPair, DeriveSharedSecret)
//   - Wrap and Unwrap, the AEAD envelope the relay uses to hand over engine
//     entropy under a freshly derived shared secret
//   - Short public-key fingerprints for logging (Fingerprint)
//
// # Notes
//
// Key material is single use. Callers own the returned slices and should
// Wipe them as soon as the derivation they feed has completed.
package crypto

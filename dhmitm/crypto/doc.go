// Package crypto implements the finite-field Diffie-Hellman demo primitives.
//
// Contents:
//   - Square-and-multiply modular exponentiation on uint64 with 128-bit intermediates
//   - Private/public key derivation and shared-secret computation
//   - A reversible XOR transform with base64 encoding (NOT a cipher)
//   - HKDF-SHA256 session fingerprints
//   - Exhaustive private-key search over small moduli
//
// Nothing here is secure. The default modulus is 23 so the search finishes instantly.
package crypto

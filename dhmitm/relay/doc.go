// Package relay implements the eavesdropping man-in-the-middle.
//
// The relay accepts the initiator's connection, holds its own connection to the
// responder, and forwards every message verbatim in both directions. While
// forwarding it records both public values, brute-forces the initiator's
// private key in the background, and then decrypts every ciphertext it has
// seen or will see. Neither endpoint can tell it is there.
package relay

// Package dhmitm demonstrates a finite-field Diffie-Hellman exchange and a
// man-in-the-middle relay that breaks it.
//
// Three roles cooperate over message-oriented transports: an initiator that
// dials and sends its public value first, a responder that waits for it, and
// an optional relay that sits between them, forwards everything verbatim,
// brute-forces the initiator's private key and decrypts the chat.
//
// Subpackages hold the pieces; this package only resolves addresses to
// transports.
package dhmitm

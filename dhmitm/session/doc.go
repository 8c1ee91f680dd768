// Package session runs one side of the key exchange and the encrypted chat
// that follows it.
//
// The protocol lives in Machine, a pure transition function from Event to
// Effects, so every rule can be tested without a network. Session is the actor
// that feeds it transport messages, operator input and timers, and carries out
// the effects it returns.
package session

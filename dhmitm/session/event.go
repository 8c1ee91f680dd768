package session

import (
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/protocol"
)

// Event is an input to Machine.Step.
type Event interface{ isEvent() }

// Opened: the transport connection is up.
type Opened struct{}

// Received: one raw message arrived from the peer.
type Received struct{ Raw []byte }

// Input: the local operator entered a line.
type Input struct{ Line string }

// InputClosed: the operator ended input.
type InputClosed struct{}

// Disconnected: the transport failed or the peer went away.
type Disconnected struct{ Err error }

// KeyTimeout: the peer's public key did not arrive in time.
type KeyTimeout struct{}

func (Opened) isEvent()       {}
func (Received) isEvent()     {}
func (Input) isEvent()        {}
func (InputClosed) isEvent()  {}
func (Disconnected) isEvent() {}
func (KeyTimeout) isEvent()   {}

// Effect is an action Machine.Step asks its driver to perform.
type Effect interface{ isEffect() }

// Send writes one envelope to the peer.
type Send struct{ Envelope protocol.Envelope }

// Notice is a diagnostic trace line.
type Notice struct {
	Level   logrus.Level
	Message string
	Fields  logrus.Fields
	Err     error
}

// Display shows a decrypted chat line to the operator.
type Display struct {
	From Role
	Text string
}

// Established reports the negotiated secret.
type Established struct {
	Params      crypto.Params
	Local       crypto.KeyPair
	PeerPublic  uint64
	Secret      uint64
	Fingerprint string
}

// Close ends the session. Err is nil for an orderly end.
type Close struct {
	Reason string
	Err    error
}

func (Send) isEffect()        {}
func (Notice) isEffect()      {}
func (Display) isEffect()     {}
func (Established) isEffect() {}
func (Close) isEffect()       {}

func notice(level logrus.Level, msg string, fields logrus.Fields, err error) Notice {
	return Notice{Level: level, Message: msg, Fields: fields, Err: err}
}

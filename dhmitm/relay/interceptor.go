package relay

import (
	"fmt"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/protocol"
)

// Origin is the endpoint a message came from.
type Origin int

const (
	FromInitiator Origin = iota + 1
	FromResponder
)

func (o Origin) String() string {
	switch o {
	case FromInitiator:
		return "initiator"
	case FromResponder:
		return "responder"
	default:
		return "unknown"
	}
}

func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "initiator":
		return FromInitiator, nil
	case "responder":
		return FromResponder, nil
	}
	return 0, fmt.Errorf("relay: unknown origin %q", s)
}

type CrackState int

const (
	CrackIdle CrackState = iota
	CrackRunning
	CrackDone
	CrackFailed
)

func (s CrackState) String() string {
	switch s {
	case CrackIdle:
		return "idle"
	case CrackRunning:
		return "running"
	case CrackDone:
		return "done"
	case CrackFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is an intercepted ciphertext kept for retroactive decryption.
type Record struct {
	Origin  Origin
	Payload string
}

// Decryption is the relay's attempt at one intercepted ciphertext.
type Decryption struct {
	Origin      Origin
	Payload     string
	Plaintext   string
	Err         error
	Retroactive bool
}

// Inspection is what the relay learned from one message in transit.
type Inspection struct {
	Envelope protocol.Envelope
	// Err is set when the message is not a valid envelope. It is still forwarded.
	Err error
	// NewKey is set when this message revealed a side's public value.
	NewKey bool
	// StartCrack is set exactly once, when both public values are known.
	StartCrack bool
	Live       *Decryption
}

// Interceptor holds the relay's capture state. It is owned by one goroutine.
type Interceptor struct {
	params        crypto.Params
	initiatorKey  uint64
	responderKey  uint64
	haveInitiator bool
	haveResponder bool
	crack         CrackState
	result        crypto.CrackResult
	log           []Record
}

func NewInterceptor(params crypto.Params) *Interceptor {
	return &Interceptor{params: params}
}

func (ic *Interceptor) Params() crypto.Params { return ic.params }

func (ic *Interceptor) CrackState() CrackState { return ic.crack }

// PublicKeys returns both observed public values once known.
func (ic *Interceptor) PublicKeys() (initiator, responder uint64, ok bool) {
	return ic.initiatorKey, ic.responderKey, ic.haveInitiator && ic.haveResponder
}

// Result returns the crack outcome once the search has succeeded.
func (ic *Interceptor) Result() (crypto.CrackResult, bool) {
	return ic.result, ic.crack == CrackDone
}

// Records returns a copy of the ciphertexts logged while the crack was pending.
func (ic *Interceptor) Records() []Record {
	return append([]Record(nil), ic.log...)
}

// Inspect examines one raw message in transit.
func (ic *Interceptor) Inspect(origin Origin, raw []byte) Inspection {
	env, err := protocol.Decode(raw)
	if err != nil {
		return Inspection{Err: err}
	}
	insp := Inspection{Envelope: env}
	switch env.Type {
	case protocol.MessageTypePublicKey:
		insp.NewKey = ic.observeKey(origin, env.PublicKey)
		if ic.haveInitiator && ic.haveResponder && ic.crack == CrackIdle {
			ic.crack = CrackRunning
			insp.StartCrack = true
		}
	case protocol.MessageTypeEncryptedMessage:
		rec := Record{Origin: origin, Payload: env.Data}
		switch ic.crack {
		case CrackIdle, CrackRunning:
			ic.log = append(ic.log, rec)
		case CrackDone:
			d := ic.decrypt(rec, false)
			insp.Live = &d
		}
	}
	return insp
}

// observeKey keeps the first public value seen from each side.
func (ic *Interceptor) observeKey(origin Origin, pub uint64) bool {
	switch origin {
	case FromInitiator:
		if ic.haveInitiator {
			return false
		}
		ic.initiatorKey, ic.haveInitiator = pub, true
	case FromResponder:
		if ic.haveResponder {
			return false
		}
		ic.responderKey, ic.haveResponder = pub, true
	default:
		return false
	}
	return true
}

// CrackFinished records the search outcome. On success it decrypts every
// ciphertext logged so far, in interception order; a record that fails to
// decode does not stop the batch.
func (ic *Interceptor) CrackFinished(res crypto.CrackResult, err error) []Decryption {
	if ic.crack != CrackRunning {
		return nil
	}
	if err != nil {
		ic.crack = CrackFailed
		return nil
	}
	ic.crack = CrackDone
	ic.result = res
	out := make([]Decryption, 0, len(ic.log))
	for _, rec := range ic.log {
		out = append(out, ic.decrypt(rec, true))
	}
	return out
}

func (ic *Interceptor) decrypt(rec Record, retro bool) Decryption {
	plain, err := crypto.Decrypt(rec.Payload, ic.result.Secret)
	return Decryption{
		Origin:      rec.Origin,
		Payload:     rec.Payload,
		Plaintext:   plain,
		Err:         err,
		Retroactive: retro,
	}
}

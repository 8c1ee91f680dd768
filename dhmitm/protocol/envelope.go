package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("protocol: malformed envelope")
	ErrUnknownType = errors.New("protocol: unknown envelope type")
)

// Envelope is one protocol message. Only the field matching Type is meaningful.
type Envelope struct {
	Type      MessageType
	PublicKey uint64
	Data      string
}

func PublicKey(value uint64) Envelope {
	return Envelope{Type: MessageTypePublicKey, PublicKey: value}
}

func EncryptedMessage(data string) Envelope {
	return Envelope{Type: MessageTypeEncryptedMessage, Data: data}
}

type publicKeyWire struct {
	Type      MessageType `json:"type"`
	PublicKey uint64      `json:"publicKey"`
}

type encryptedWire struct {
	Type MessageType `json:"type"`
	Data string      `json:"data"`
}

// decodeWire keeps pointers so a missing field is distinguishable from a zero value.
type decodeWire struct {
	Type      MessageType `json:"type"`
	PublicKey *uint64     `json:"publicKey"`
	Data      *string     `json:"data"`
}

// Encode renders e as its JSON wire form.
func Encode(e Envelope) ([]byte, error) {
	switch e.Type {
	case MessageTypePublicKey:
		return json.Marshal(publicKeyWire{Type: e.Type, PublicKey: e.PublicKey})
	case MessageTypeEncryptedMessage:
		return json.Marshal(encryptedWire{Type: e.Type, Data: e.Data})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(e.Type))
	}
}

// Decode parses a JSON envelope and checks the type-specific field is present.
func Decode(b []byte) (Envelope, error) {
	var w decodeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch w.Type {
	case MessageTypePublicKey:
		if w.PublicKey == nil {
			return Envelope{}, fmt.Errorf("%w: public_key without publicKey", ErrMalformed)
		}
		return PublicKey(*w.PublicKey), nil
	case MessageTypeEncryptedMessage:
		if w.Data == nil {
			return Envelope{}, fmt.Errorf("%w: encrypted_message without data", ErrMalformed)
		}
		return EncryptedMessage(*w.Data), nil
	case "":
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, string(w.Type))
	}
}

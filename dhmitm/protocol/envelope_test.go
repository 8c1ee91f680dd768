package protocol

import (
	"errors"
	"testing"
)

func TestEnvelopeWireForm(t *testing.T) {
	b, err := Encode(PublicKey(8))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(b) != `{"type":"public_key","publicKey":8}` {
		t.Fatalf("unexpected public key wire form %s", b)
	}

	b, err = Encode(EncryptedMessage("Wls="))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(b) != `{"type":"encrypted_message","data":"Wls="}` {
		t.Fatalf("unexpected encrypted wire form %s", b)
	}

	if _, err := Encode(Envelope{Type: "hello"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"public_key","publicKey":0}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != MessageTypePublicKey || env.PublicKey != 0 {
		t.Fatalf("unexpected envelope %+v", env)
	}

	env, err = Decode([]byte(`{"data":"","type":"encrypted_message"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != MessageTypeEncryptedMessage || env.Data != "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestDecodeFailures(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{`not json`, ErrMalformed},
		{`{"publicKey":8}`, ErrMalformed},
		{`{"type":"public_key"}`, ErrMalformed},
		{`{"type":"public_key","publicKey":-1}`, ErrMalformed},
		{`{"type":"encrypted_message"}`, ErrMalformed},
		{`{"type":"rekey","publicKey":8}`, ErrUnknownType},
	}
	for _, c := range cases {
		if _, err := Decode([]byte(c.in)); !errors.Is(err, c.want) {
			t.Fatalf("Decode(%s): expected %v, got %v", c.in, c.want, err)
		}
	}
}

func TestMessageTypeString(t *testing.T) {
	if MessageTypePublicKey.String() != "PUBLIC_KEY" || MessageType("x").String() != "UNKNOWN" {
		t.Fatalf("unexpected String output")
	}
	if MessageType("x").Valid() {
		t.Fatalf("unknown type reported valid")
	}
}

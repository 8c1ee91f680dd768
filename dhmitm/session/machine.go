package session

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/protocol"
)

var (
	ErrNotReady     = errors.New("session: shared secret not established")
	ErrDuplicateKey = errors.New("session: peer sent a second public key")
	ErrKeyTimeout   = errors.New("session: timed out waiting for peer public key")
	ErrWeakPeerKey  = errors.New("session: peer public key outside [2, p-1]")
)

type Role int

const (
	Initiator Role = iota + 1
	Responder
)

func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return "unknown"
	}
}

// Peer is the role on the other end of the channel.
func (r Role) Peer() Role {
	if r == Initiator {
		return Responder
	}
	return Initiator
}

type State int

const (
	StateConnecting State = iota
	StateAwaitingPeerKey
	StateSecretEstablished
	StateChatting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingPeerKey:
		return "awaiting-peer-key"
	case StateSecretEstablished:
		return "secret-established"
	case StateChatting:
		return "chatting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config fixes the role, group and key source for one machine.
type Config struct {
	Role   Role
	Params crypto.Params
	Keys   crypto.KeyRange
	// Rand feeds private key sampling; nil means crypto/rand.
	Rand io.Reader
	// PrivateKey, when non-zero, is used instead of sampling.
	PrivateKey uint64
}

// Machine is the per-peer protocol state. It is owned by a single goroutine.
type Machine struct {
	cfg        Config
	state      State
	keys       crypto.KeyPair
	haveKeys   bool
	sentKey    bool
	peerPublic uint64
	secret     uint64
}

func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Role != Initiator && cfg.Role != Responder {
		return nil, fmt.Errorf("session: invalid role %d", cfg.Role)
	}
	if cfg.Params == (crypto.Params{}) {
		cfg.Params = crypto.DefaultParams
	}
	if cfg.Keys == (crypto.KeyRange{}) {
		cfg.Keys = crypto.DefaultKeyRange
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.PrivateKey != 0 {
		if cfg.PrivateKey >= cfg.Params.Prime {
			return nil, fmt.Errorf("%w: private key %d must be below prime %d", crypto.ErrKeyRange, cfg.PrivateKey, cfg.Params.Prime)
		}
	} else if err := cfg.Keys.Validate(cfg.Params); err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg, state: StateConnecting}, nil
}

func (m *Machine) Role() Role { return m.cfg.Role }

func (m *Machine) State() State { return m.state }

func (m *Machine) Params() crypto.Params { return m.cfg.Params }

// Keys returns the local key pair once generated.
func (m *Machine) Keys() (crypto.KeyPair, bool) { return m.keys, m.haveKeys }

// Secret returns the shared secret once established.
func (m *Machine) Secret() (uint64, bool) {
	return m.secret, m.state == StateSecretEstablished || m.state == StateChatting
}

// Step consumes one event and returns the effects to carry out, in order.
func (m *Machine) Step(ev Event) []Effect {
	if m.state == StateClosed {
		return nil
	}
	switch ev := ev.(type) {
	case Opened:
		return m.opened()
	case Received:
		return m.received(ev.Raw)
	case Input:
		return m.input(ev.Line)
	case InputClosed:
		m.state = StateClosed
		return []Effect{Close{Reason: "input closed"}}
	case Disconnected:
		m.state = StateClosed
		return []Effect{
			notice(logrus.WarnLevel, "peer disconnected", nil, ev.Err),
			Close{Reason: "peer disconnected"},
		}
	case KeyTimeout:
		if m.state != StateAwaitingPeerKey {
			return nil
		}
		m.state = StateClosed
		return []Effect{
			notice(logrus.ErrorLevel, "no public key from peer", nil, ErrKeyTimeout),
			Close{Reason: "key timeout", Err: ErrKeyTimeout},
		}
	}
	return nil
}

func (m *Machine) opened() []Effect {
	if m.state != StateConnecting {
		return nil
	}
	m.state = StateAwaitingPeerKey
	if m.cfg.Role == Responder {
		return []Effect{notice(logrus.InfoLevel, "waiting for initiator public key", nil, nil)}
	}
	effects, ok := m.ensureKeys(nil)
	if !ok {
		return effects
	}
	return m.sendPublicKey(effects)
}

func (m *Machine) received(raw []byte) []Effect {
	env, err := protocol.Decode(raw)
	if err != nil {
		return []Effect{notice(logrus.WarnLevel, "discarding undecodable message", logrus.Fields{"raw": string(raw)}, err)}
	}
	switch env.Type {
	case protocol.MessageTypePublicKey:
		return m.peerKey(env.PublicKey)
	case protocol.MessageTypeEncryptedMessage:
		return m.encrypted(env.Data)
	}
	return nil
}

func (m *Machine) peerKey(pub uint64) []Effect {
	if m.state == StateSecretEstablished || m.state == StateChatting {
		return []Effect{notice(logrus.WarnLevel, "discarding repeated public key",
			logrus.Fields{"peer_public_key": pub}, ErrDuplicateKey)}
	}
	m.state = StateAwaitingPeerKey
	m.peerPublic = pub
	effects := []Effect{notice(logrus.InfoLevel, "received peer public key",
		logrus.Fields{"peer_public_key": pub}, nil)}
	if pub < 2 || pub >= m.cfg.Params.Prime {
		effects = append(effects, notice(logrus.WarnLevel, "peer public key is degenerate, secret will be predictable",
			logrus.Fields{"peer_public_key": pub, "prime": m.cfg.Params.Prime}, ErrWeakPeerKey))
	}

	effects, ok := m.ensureKeys(effects)
	if !ok {
		return effects
	}
	if !m.sentKey {
		effects = m.sendPublicKey(effects)
	}

	p := m.cfg.Params.Prime
	m.secret = crypto.ComputeSharedSecret(pub, m.keys.PrivateKey, p)
	m.state = StateSecretEstablished

	initiatorPub, responderPub := m.keys.PublicKey, pub
	if m.cfg.Role == Responder {
		initiatorPub, responderPub = pub, m.keys.PublicKey
	}
	est := Established{
		Params:      m.cfg.Params,
		Local:       m.keys,
		PeerPublic:  pub,
		Secret:      m.secret,
		Fingerprint: crypto.Fingerprint(m.secret, initiatorPub, responderPub),
	}
	effects = append(effects,
		notice(logrus.InfoLevel, "shared secret established", logrus.Fields{
			"formula":     fmt.Sprintf("%d^%d mod %d", pub, m.keys.PrivateKey, p),
			"secret":      m.secret,
			"fingerprint": est.Fingerprint,
		}, nil),
		est,
	)
	m.state = StateChatting
	return effects
}

func (m *Machine) encrypted(data string) []Effect {
	if m.state != StateChatting {
		return []Effect{notice(logrus.WarnLevel, "discarding encrypted message", nil, ErrNotReady)}
	}
	plain, err := crypto.Decrypt(data, m.secret)
	if err != nil {
		return []Effect{notice(logrus.ErrorLevel, "failed to decrypt message", logrus.Fields{"data": data}, err)}
	}
	return []Effect{Display{From: m.cfg.Role.Peer(), Text: plain}}
}

func (m *Machine) input(line string) []Effect {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if m.state != StateChatting {
		return []Effect{notice(logrus.WarnLevel, "line dropped", nil, ErrNotReady)}
	}
	data := crypto.Encrypt(line, m.secret)
	return []Effect{
		Send{Envelope: protocol.EncryptedMessage(data)},
		notice(logrus.DebugLevel, "sent encrypted message", logrus.Fields{"plaintext": line, "data": data}, nil),
	}
}

func (m *Machine) ensureKeys(effects []Effect) ([]Effect, bool) {
	if m.haveKeys {
		return effects, true
	}
	if m.cfg.PrivateKey != 0 {
		m.keys = crypto.NewKeyPair(m.cfg.Params, m.cfg.PrivateKey)
	} else {
		kp, err := crypto.GenerateKeyPair(m.cfg.Rand, m.cfg.Params, m.cfg.Keys)
		if err != nil {
			m.state = StateClosed
			return append(effects,
				notice(logrus.ErrorLevel, "key generation failed", nil, err),
				Close{Reason: "key generation failed", Err: err},
			), false
		}
		m.keys = kp
	}
	m.haveKeys = true
	return append(effects, notice(logrus.InfoLevel, "generated key pair", logrus.Fields{
		"private_key": m.keys.PrivateKey,
		"public_key":  m.keys.PublicKey,
		"formula":     fmt.Sprintf("%d^%d mod %d", m.cfg.Params.Generator, m.keys.PrivateKey, m.cfg.Params.Prime),
	}, nil)), true
}

func (m *Machine) sendPublicKey(effects []Effect) []Effect {
	m.sentKey = true
	return append(effects, Send{Envelope: protocol.PublicKey(m.keys.PublicKey)})
}

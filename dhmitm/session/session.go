package session

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/protocol"
	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

// Console shows decrypted chat lines to the local operator.
type Console interface {
	Show(from Role, text string)
}

type Options struct {
	Config
	// KeyTimeout bounds the wait for the peer's public key. Zero waits forever.
	KeyTimeout time.Duration
	Logger     logrus.FieldLogger
	Console    Console
	// OnEstablished is called from the session goroutine once the secret is known.
	OnEstablished func(Established)
}

// Session drives a Machine over one transport connection.
type Session struct {
	conn transport.Conn
	m    *Machine
	opts Options
	log  logrus.FieldLogger
}

func New(conn transport.Conn, opts Options) (*Session, error) {
	m, err := NewMachine(opts.Config)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		conn: conn,
		m:    m,
		opts: opts,
		log:  log.WithFields(logrus.Fields{"role": opts.Role.String(), "remote": conn.RemoteAddr()}),
	}, nil
}

// State is only safe to call once Run has returned.
func (s *Session) State() State { return s.m.State() }

// Run processes events until the session closes or ctx is cancelled.
// lines carries operator input; closing it ends the session.
// The connection is closed when Run returns.
func (s *Session) Run(ctx context.Context, lines <-chan string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, msgs, readErr)

	var timeout <-chan time.Time
	if s.opts.KeyTimeout > 0 {
		timer := time.NewTimer(s.opts.KeyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	if done, err := s.apply(ctx, s.m.Step(Opened{})); done {
		return err
	}
	for {
		var ev Event
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-msgs:
			ev = Received{Raw: raw}
		case err := <-readErr:
			ev = Disconnected{Err: err}
		case line, ok := <-lines:
			if !ok {
				lines = nil
				ev = InputClosed{}
			} else {
				ev = Input{Line: line}
			}
		case <-timeout:
			timeout = nil
			ev = KeyTimeout{}
		}
		if done, err := s.apply(ctx, s.m.Step(ev)); done {
			return err
		}
	}
}

func (s *Session) readLoop(ctx context.Context, msgs chan<- []byte, errc chan<- error) {
	for {
		msg, err := s.conn.ReadMessage(ctx)
		if err != nil {
			errc <- err
			return
		}
		select {
		case msgs <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// apply carries out effects in order. A failed send feeds a Disconnected event
// back into the machine, so its effects are appended and processed too.
func (s *Session) apply(ctx context.Context, effects []Effect) (bool, error) {
	for i := 0; i < len(effects); i++ {
		switch e := effects[i].(type) {
		case Send:
			raw, err := protocol.Encode(e.Envelope)
			if err == nil {
				err = s.conn.WriteMessage(ctx, raw)
			}
			if err != nil {
				effects = append(effects, s.m.Step(Disconnected{Err: err})...)
				continue
			}
			s.log.WithFields(logrus.Fields{"type": e.Envelope.Type.String()}).Debug("message sent")
		case Notice:
			s.logNotice(e)
		case Display:
			if s.opts.Console != nil {
				s.opts.Console.Show(e.From, e.Text)
			}
		case Established:
			if s.opts.OnEstablished != nil {
				s.opts.OnEstablished(e)
			}
		case Close:
			s.log.WithField("reason", e.Reason).Info("session closed")
			_ = s.conn.Close()
			return true, e.Err
		}
	}
	return false, nil
}

func (s *Session) logNotice(n Notice) {
	entry := s.log.WithField("state", s.m.State().String())
	if len(n.Fields) > 0 {
		entry = entry.WithFields(n.Fields)
	}
	if n.Err != nil {
		entry = entry.WithError(n.Err)
	}
	switch n.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(n.Message)
	case logrus.WarnLevel:
		entry.Warn(n.Message)
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		entry.Error(n.Message)
	default:
		entry.Info(n.Message)
	}
}

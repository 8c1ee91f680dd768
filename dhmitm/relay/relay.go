package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/capture"
	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

// CaptureSink persists every message the relay sees. *capture.Writer
// satisfies it.
type CaptureSink interface {
	Write(rec capture.Record) error
}

type Options struct {
	Params crypto.Params
	// CrackWorkers is the number of goroutines searching for the private key.
	CrackWorkers int
	Logger       logrus.FieldLogger
	Capture      CaptureSink
	Metrics      *Metrics
	// OnDecrypt is called from the relay goroutine for every decryption attempt.
	OnDecrypt func(Decryption)
}

// Relay sits between one initiator and one responder.
type Relay struct {
	opts Options
	log  logrus.FieldLogger
	ic   *Interceptor

	responder transport.Conn
	initiator transport.Conn
	outbox    outbox
}

type event interface{ isEvent() }

type accepted struct{ conn transport.Conn }
type acceptFailed struct{ err error }
type message struct {
	origin Origin
	raw    []byte
}
type disconnected struct {
	origin Origin
	err    error
}
type crackDone struct {
	res crypto.CrackResult
	err error
}

func (accepted) isEvent()     {}
func (acceptFailed) isEvent() {}
func (message) isEvent()      {}
func (disconnected) isEvent() {}
func (crackDone) isEvent()    {}

func New(opts Options) (*Relay, error) {
	if opts.Params == (crypto.Params{}) {
		opts.Params = crypto.DefaultParams
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.CrackWorkers <= 0 {
		opts.CrackWorkers = 1
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Relay{
		opts: opts,
		log:  log.WithField("role", "relay"),
		ic:   NewInterceptor(opts.Params),
	}, nil
}

// Interceptor exposes the capture state. Only safe to use once Run has returned.
func (r *Relay) Interceptor() *Interceptor { return r.ic }

// Run relays between responder, which the caller has already dialed, and the
// first connection accepted from ln. It returns nil when either side
// disconnects; both connections are closed on return. ln is left open.
func (r *Relay) Run(ctx context.Context, responder transport.Conn, ln transport.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.responder = responder
	defer func() {
		_ = r.responder.Close()
		if r.initiator != nil {
			_ = r.initiator.Close()
		}
	}()

	events := make(chan event)
	go r.readLoop(ctx, FromResponder, responder, events)
	go r.acceptOne(ctx, ln, events)

	r.log.WithFields(logrus.Fields{
		"listen":   ln.Addr(),
		"upstream": responder.RemoteAddr(),
		"params":   r.opts.Params.String(),
	}).Info("relay waiting for initiator")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if done, err := r.handle(ctx, ev, events); done {
				return err
			}
		}
	}
}

func (r *Relay) acceptOne(ctx context.Context, ln transport.Listener, events chan<- event) {
	conn, err := ln.Accept(ctx)
	var ev event = accepted{conn: conn}
	if err != nil {
		ev = acceptFailed{err: err}
	}
	select {
	case events <- ev:
	case <-ctx.Done():
		if conn != nil {
			_ = conn.Close()
		}
	}
}

func (r *Relay) readLoop(ctx context.Context, origin Origin, conn transport.Conn, events chan<- event) {
	for {
		raw, err := conn.ReadMessage(ctx)
		var ev event = message{origin: origin, raw: raw}
		if err != nil {
			ev = disconnected{origin: origin, err: err}
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (r *Relay) handle(ctx context.Context, ev event, events chan event) (bool, error) {
	switch e := ev.(type) {
	case accepted:
		r.initiator = e.conn
		log := r.log.WithField("initiator", e.conn.RemoteAddr())
		n, err := r.outbox.Attach(ctx, e.conn)
		if err != nil {
			log.WithError(err).Warn("flushing buffered messages failed")
			return true, nil
		}
		if n > 0 {
			log.WithField("count", n).Info("flushed buffered responder messages")
		}
		log.Info("initiator connected")
		go r.readLoop(ctx, FromInitiator, e.conn, events)

	case acceptFailed:
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		r.log.WithError(e.err).Error("accepting initiator failed")
		return true, fmt.Errorf("relay: accept: %w", e.err)

	case message:
		return r.forward(ctx, e.origin, e.raw, events)

	case disconnected:
		r.log.WithField("origin", e.origin.String()).WithError(e.err).Info("peer disconnected, closing relay")
		return true, nil

	case crackDone:
		r.crackFinished(e.res, e.err)
	}
	return false, nil
}

// forward inspects raw and passes the same bytes to the other side.
func (r *Relay) forward(ctx context.Context, origin Origin, raw []byte, events chan event) (bool, error) {
	log := r.log.WithField("origin", origin.String())
	r.record(origin, raw)

	insp := r.ic.Inspect(origin, raw)
	switch {
	case insp.Err != nil:
		r.opts.Metrics.malformed(origin)
		log.WithError(insp.Err).Warn("undecodable message, forwarding verbatim")
	case insp.NewKey:
		r.opts.Metrics.publicKey(origin)
		log.WithField("public_key", insp.Envelope.PublicKey).Info("public key intercepted")
	}
	if insp.StartCrack {
		r.startCrack(ctx, events)
	}
	if insp.Live != nil {
		r.report(*insp.Live)
	}

	var err error
	if origin == FromInitiator {
		err = r.responder.WriteMessage(ctx, raw)
	} else {
		var queued bool
		queued, err = r.outbox.Send(ctx, raw)
		if queued {
			r.opts.Metrics.buffered()
			log.WithField("pending", r.outbox.Len()).Debug("initiator not connected, buffering")
			return false, nil
		}
	}
	if err != nil {
		log.WithError(err).Warn("forwarding failed, closing relay")
		return true, nil
	}
	r.opts.Metrics.relayed(origin)
	return false, nil
}

func (r *Relay) record(origin Origin, raw []byte) {
	if r.opts.Capture == nil {
		return
	}
	if err := r.opts.Capture.Write(capture.Record{Origin: origin.String(), Raw: string(raw)}); err != nil {
		r.log.WithError(err).Error("capture write failed")
	}
}

func (r *Relay) startCrack(ctx context.Context, events chan<- event) {
	initiatorPub, responderPub, _ := r.ic.PublicKeys()
	r.log.WithFields(logrus.Fields{
		"initiator_public": initiatorPub,
		"responder_public": responderPub,
		"workers":          r.opts.CrackWorkers,
	}).Info("both public keys captured, starting brute force")

	params, workers := r.opts.Params, r.opts.CrackWorkers
	go func() {
		res, err := crypto.Crack(ctx, params, initiatorPub, responderPub, workers)
		select {
		case events <- crackDone{res: res, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (r *Relay) crackFinished(res crypto.CrackResult, err error) {
	switch {
	case errors.Is(err, crypto.ErrNoMatch):
		r.opts.Metrics.crack(res.Elapsed.Seconds(), "no_match")
		r.log.WithField("attempts", res.Attempts).Warn("no private key matches, decryption unavailable")
	case err != nil:
		r.opts.Metrics.crack(res.Elapsed.Seconds(), "error")
		r.log.WithError(err).Error("brute force failed, decryption unavailable")
	}
	decs := r.ic.CrackFinished(res, err)
	if err != nil {
		return
	}
	r.opts.Metrics.crack(res.Elapsed.Seconds(), "ok")

	initiatorPub, responderPub, _ := r.ic.PublicKeys()
	r.log.WithFields(logrus.Fields{
		"private_key": res.PrivateKey,
		"secret":      res.Secret,
		"attempts":    res.Attempts,
		"elapsed":     res.Elapsed,
		"fingerprint": crypto.Fingerprint(res.Secret, initiatorPub, responderPub),
	}).Warn("initiator private key recovered")

	if len(decs) > 0 {
		r.log.WithField("count", len(decs)).Info("decrypting intercepted history")
	}
	for _, d := range decs {
		r.report(d)
	}
}

func (r *Relay) report(d Decryption) {
	r.opts.Metrics.decryption(d)
	log := r.log.WithFields(logrus.Fields{
		"origin":      d.Origin.String(),
		"retroactive": d.Retroactive,
	})
	if d.Err != nil {
		log.WithError(d.Err).Warn("intercepted message could not be decrypted")
	} else {
		log.WithField("plaintext", d.Plaintext).Info("intercepted message decrypted")
	}
	if r.opts.OnDecrypt != nil {
		r.opts.OnDecrypt(d)
	}
}

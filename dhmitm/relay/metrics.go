package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	directionToResponder = "initiator_to_responder"
	directionToInitiator = "responder_to_initiator"
)

// Metrics records what the relay forwards and recovers. A nil *Metrics is a
// no-op.
type Metrics struct {
	Relayed     *prometheus.CounterVec   // messages forwarded, by direction
	PublicKeys  *prometheus.CounterVec   // public values intercepted, by origin
	Decryptions *prometheus.CounterVec   // ciphertexts attempted, by mode and outcome
	Buffered    prometheus.Counter       // responder messages held for a late initiator
	Malformed   *prometheus.CounterVec   // undecodable envelopes, by origin
	Crack       *prometheus.HistogramVec // brute-force duration, by outcome
}

// NewMetrics creates the relay collectors and registers them on reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "messages_relayed_total",
			Help:      "Messages forwarded between the endpoints.",
		}, []string{"direction"}),
		PublicKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "public_keys_observed_total",
			Help:      "Public values intercepted.",
		}, []string{"origin"}),
		Decryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "decryptions_total",
			Help:      "Intercepted ciphertexts the relay tried to decrypt.",
		}, []string{"mode", "outcome"}),
		Buffered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "messages_buffered_total",
			Help:      "Responder messages queued before the initiator connected.",
		}),
		Malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "malformed_messages_total",
			Help:      "Messages that were not valid envelopes.",
		}, []string{"origin"}),
		Crack: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dhmitm",
			Subsystem: "relay",
			Name:      "crack_duration_seconds",
			Help:      "Time spent searching for the initiator's private key.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 10, 8),
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Relayed, m.PublicKeys, m.Decryptions, m.Buffered, m.Malformed, m.Crack)
	}
	return m
}

func (m *Metrics) relayed(origin Origin) {
	if m == nil {
		return
	}
	dir := directionToResponder
	if origin == FromResponder {
		dir = directionToInitiator
	}
	m.Relayed.WithLabelValues(dir).Inc()
}

func (m *Metrics) publicKey(origin Origin) {
	if m == nil {
		return
	}
	m.PublicKeys.WithLabelValues(origin.String()).Inc()
}

func (m *Metrics) buffered() {
	if m == nil {
		return
	}
	m.Buffered.Inc()
}

func (m *Metrics) malformed(origin Origin) {
	if m == nil {
		return
	}
	m.Malformed.WithLabelValues(origin.String()).Inc()
}

func (m *Metrics) decryption(d Decryption) {
	if m == nil {
		return
	}
	mode := "live"
	if d.Retroactive {
		mode = "retroactive"
	}
	outcome := "ok"
	if d.Err != nil {
		outcome = "error"
	}
	m.Decryptions.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) crack(seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.Crack.WithLabelValues(outcome).Observe(seconds)
}

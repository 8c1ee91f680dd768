package relay

import (
	"context"
	"errors"

	"github.com/TheusHen/dhmitm/dhmitm/capture"
	"github.com/TheusHen/dhmitm/dhmitm/crypto"
)

var ErrIncomplete = errors.New("relay: capture does not hold both public keys")

// Analysis is the offline attack over a capture.
type Analysis struct {
	InitiatorPublic uint64
	ResponderPublic uint64
	Crack           crypto.CrackResult
	Fingerprint     string
	Decryptions     []Decryption
	// Skipped counts records with an unknown origin or an undecodable envelope.
	Skipped int
}

// Analyze replays recs through an Interceptor, cracks the exchange and
// decrypts every ciphertext in capture order.
func Analyze(ctx context.Context, params crypto.Params, recs []capture.Record, workers int) (Analysis, error) {
	var a Analysis
	ic := NewInterceptor(params)
	for _, rec := range recs {
		origin, err := ParseOrigin(rec.Origin)
		if err != nil {
			a.Skipped++
			continue
		}
		if insp := ic.Inspect(origin, []byte(rec.Raw)); insp.Err != nil {
			a.Skipped++
		}
	}

	var ok bool
	a.InitiatorPublic, a.ResponderPublic, ok = ic.PublicKeys()
	if !ok {
		return a, ErrIncomplete
	}
	res, err := crypto.Crack(ctx, params, a.InitiatorPublic, a.ResponderPublic, workers)
	a.Crack = res
	a.Decryptions = ic.CrackFinished(res, err)
	if err != nil {
		return a, err
	}
	a.Fingerprint = crypto.Fingerprint(res.Secret, a.InitiatorPublic, a.ResponderPublic)
	return a, nil
}

package crypto

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrNoMatch = errors.New("crypto: no private key matches the observed public key")

// cancelCheckInterval is how many candidates a worker tries between context checks.
const cancelCheckInterval = 4096

// CrackResult is the outcome of a successful private key search.
type CrackResult struct {
	PrivateKey uint64 // recovered initiator exponent
	Secret     uint64 // responderPub^PrivateKey mod p
	Attempts   uint64 // candidates an ascending scan tries before the match
	Elapsed    time.Duration
}

// Crack recovers the initiator's private key by trying every exponent in
// [1, Prime-1] and derives the shared secret with the responder's public value.
//
// The range is split into contiguous slices scanned by up to workers goroutines.
// The lowest matching exponent always wins, so the result equals a single
// ascending scan regardless of workers.
func Crack(ctx context.Context, params Params, initiatorPub, responderPub uint64, workers int) (CrackResult, error) {
	if err := params.Validate(); err != nil {
		return CrackResult{}, err
	}
	start := time.Now()

	candidates := params.Prime - 1
	if workers <= 0 {
		workers = 1
	}
	if uint64(workers) > candidates {
		workers = int(candidates)
	}
	span := (candidates + uint64(workers) - 1) / uint64(workers)

	found := make([]uint64, workers)
	var best atomic.Int64
	best.Store(int64(workers))

	g, gctx := errgroup.WithContext(ctx)
	for idx := 0; idx < workers; idx++ {
		idx := idx
		lo := 1 + uint64(idx)*span
		hi := min(lo+span-1, candidates)
		g.Go(func() error {
			for a := lo; a <= hi; a++ {
				if (a-lo)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
					if best.Load() < int64(idx) {
						return nil
					}
				}
				if ComputePublicKey(params.Generator, a, params.Prime) != initiatorPub {
					continue
				}
				found[idx] = a
				for {
					cur := best.Load()
					if int64(idx) >= cur || best.CompareAndSwap(cur, int64(idx)) {
						break
					}
				}
				return nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CrackResult{}, err
	}

	winner := best.Load()
	if winner == int64(workers) {
		return CrackResult{Attempts: candidates, Elapsed: time.Since(start)}, ErrNoMatch
	}
	priv := found[winner]
	return CrackResult{
		PrivateKey: priv,
		Secret:     ComputeSharedSecret(responderPub, priv, params.Prime),
		Attempts:   priv,
		Elapsed:    time.Since(start),
	}, nil
}

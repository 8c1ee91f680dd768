package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

var ErrUnreachable = errors.New("session: no address reachable")

// DialFallback dials primary and, only if that dial fails, fallback.
// It reports which address answered. Disconnects after a successful dial are
// the caller's concern and never trigger the fallback.
func DialFallback(ctx context.Context, dial transport.Dialer, primary, fallback string, log logrus.FieldLogger) (transport.Conn, string, error) {
	conn, err := dial(ctx, primary)
	if err == nil {
		return conn, primary, nil
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrUnreachable, primary, err)
	}
	if fallback == "" || fallback == primary {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrUnreachable, primary, err)
	}
	if log != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"primary":  primary,
			"fallback": fallback,
		}).Warn("primary address unreachable, trying fallback")
	}

	conn, ferr := dial(ctx, fallback)
	if ferr != nil {
		return nil, "", fmt.Errorf("%w: %s: %v; %s: %w", ErrUnreachable, primary, err, fallback, ferr)
	}
	return conn, fallback, nil
}

package commands

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/dhmitm/dhmitm/session"
	"github.com/TheusHen/dhmitm/dhmitm/transport"
)

// runSession chats over conn with stdin as input until either side ends it.
func runSession(ctx context.Context, role session.Role, conn transport.Conn) error {
	con := newConsole()
	sess, err := session.New(conn, session.Options{
		Config: session.Config{
			Role:   role,
			Params: cfg.CryptoParams(),
			Keys:   cfg.KeyRange(),
		},
		KeyTimeout: cfg.Session.KeyTimeout,
		Logger:     log,
		Console:    con,
		OnEstablished: func(e session.Established) {
			log.WithFields(logrus.Fields{
				"role":        role.String(),
				"fingerprint": e.Fingerprint,
			}).Info("secure channel ready, compare the fingerprint with your peer")
		},
	})
	if err != nil {
		return err
	}
	return sess.Run(ctx, con.readLines(ctx, os.Stdin))
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/TheusHen/dhmitm/dhmitm"
	"github.com/TheusHen/dhmitm/dhmitm/session"
)

func responderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "responder",
		Short: "Wait for an initiator and chat with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ln, err := dhmitm.Listen(cfg.Responder.Listen)
			if err != nil {
				return err
			}
			defer ln.Close()
			log.WithField("addr", ln.Addr()).Info("responder listening")

			conn, err := ln.Accept(ctx)
			if err != nil {
				return err
			}
			log.WithField("remote", conn.RemoteAddr()).Info("peer connected")
			return runSession(ctx, session.Responder, conn)
		},
	}
	cmd.Flags().String("listen", "", "address to listen on (ws://host:port or quic://host:port)")
	bind(cmd, map[string]string{"responder.listen": "listen"})
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/TheusHen/dhmitm/dhmitm"
	"github.com/TheusHen/dhmitm/dhmitm/session"
)

func initiatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initiator",
		Short: "Connect to a responder (through the relay if it is up) and chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, addr, err := session.DialFallback(ctx, dhmitm.Dial, cfg.Initiator.Primary, cfg.Initiator.Fallback, log)
			if err != nil {
				return err
			}
			log.WithField("addr", addr).Info("connected")
			return runSession(ctx, session.Initiator, conn)
		},
	}
	cmd.Flags().String("primary", "", "address tried first")
	cmd.Flags().String("fallback", "", "address tried when the primary is unreachable")
	bind(cmd, map[string]string{
		"initiator.primary":  "primary",
		"initiator.fallback": "fallback",
	})
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheusHen/dhmitm/dhmitm/capture"
	"github.com/TheusHen/dhmitm/dhmitm/crypto"
	"github.com/TheusHen/dhmitm/dhmitm/relay"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <capture>",
		Short: "Crack a recorded exchange offline and print the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rd, err := capture.Open(args[0])
			if err != nil {
				return err
			}
			defer rd.Close()
			recs, err := rd.ReadAll()
			if err != nil {
				return err
			}
			h := rd.Header()
			params := crypto.Params{Prime: h.Prime, Generator: h.Generator}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:  %s\n", h.Session)
			fmt.Fprintf(out, "Started:  %s\n", h.Started.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Group:    %s\n", params)
			fmt.Fprintf(out, "Records:  %d\n", len(recs))

			a, err := relay.Analyze(cmd.Context(), params, recs, cfg.Relay.CrackWorkers)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Keys:     A=%d B=%d\n", a.InitiatorPublic, a.ResponderPublic)
			fmt.Fprintf(out, "Cracked:  a=%d secret=%d after %d attempts\n", a.Crack.PrivateKey, a.Crack.Secret, a.Crack.Attempts)
			fmt.Fprintf(out, "Fingerprint: %s\n\n", a.Fingerprint)
			for _, d := range a.Decryptions {
				if d.Err != nil {
					fmt.Fprintf(out, "[%s] <%v>\n", d.Origin, d.Err)
					continue
				}
				fmt.Fprintf(out, "[%s] %s\n", d.Origin, d.Plaintext)
			}
			if a.Skipped > 0 {
				log.WithField("count", a.Skipped).Warn("skipped unreadable records")
			}
			return nil
		},
	}
	cmd.Flags().Int("workers", 0, "brute-force goroutines")
	bind(cmd, map[string]string{"relay.crack_workers": "workers"})
	return cmd
}

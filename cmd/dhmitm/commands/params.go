package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
)

func paramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show the group parameters and every public value a private key can produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, kr := cfg.CryptoParams(), cfg.KeyRange()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Group:     %s\n", params)
			fmt.Fprintf(out, "Key range: [%d, %d]\n\n", kr.Min, kr.Max)
			fmt.Fprintln(out, "private  public")
			for priv := kr.Min; priv <= kr.Max; priv++ {
				fmt.Fprintf(out, "%7d  %6d\n", priv, crypto.ComputePublicKey(params.Generator, priv, params.Prime))
			}
			return nil
		},
	}
	return cmd
}

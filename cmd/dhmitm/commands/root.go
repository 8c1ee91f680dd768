// Package commands implements the dhmitm command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TheusHen/dhmitm/internal/config"
)

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     = logrus.New()

	// bindings maps each command to its config key -> flag name pairs.
	bindings = map[*cobra.Command]map[string]string{}
)

func Execute() error {
	v = config.New()

	root := &cobra.Command{
		Use:           "dhmitm",
		Short:         "Diffie-Hellman chat with an eavesdropping relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(v, cmd.Root().PersistentFlags(), bindings[cmd.Root()]); err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags(), bindings[cmd]); err != nil {
				return err
			}
			c, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			cfg = c
			lvl, _ := cfg.LogLevel()
			log.SetLevel(lvl)
			return nil
		},
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./dhmitm.yaml or ~/.dhmitm/dhmitm.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().Uint64("prime", 0, "group prime p")
	root.PersistentFlags().Uint64("generator", 0, "group generator g")
	bind(root, map[string]string{
		"log.level":        "log-level",
		"params.prime":     "prime",
		"params.generator": "generator",
	})

	root.AddCommand(responderCmd(), initiatorCmd(), relayCmd(), inspectCmd(), paramsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("dhmitm failed")
		return err
	}
	return nil
}

func bind(cmd *cobra.Command, keys map[string]string) {
	bindings[cmd] = keys
}

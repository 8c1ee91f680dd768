package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/TheusHen/dhmitm/dhmitm"
	"github.com/TheusHen/dhmitm/dhmitm/capture"
	"github.com/TheusHen/dhmitm/dhmitm/relay"
)

func relayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Sit between initiator and responder, crack the exchange and read the chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			params := cfg.CryptoParams()
			opts := relay.Options{
				Params:       params,
				CrackWorkers: cfg.Relay.CrackWorkers,
				Logger:       log,
			}

			if cfg.Relay.Capture != "" {
				w, err := capture.Create(cfg.Relay.Capture, params.Prime, params.Generator, capture.CompressionDefault)
				if err != nil {
					return err
				}
				defer w.Close()
				log.WithField("file", cfg.Relay.Capture).WithField("session", w.Header().Session).Info("capturing traffic")
				opts.Capture = w
			}

			if cfg.Relay.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				opts.Metrics = relay.NewMetrics(reg)
				srv := serveMetrics(cfg.Relay.MetricsAddr, reg)
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}

			r, err := relay.New(opts)
			if err != nil {
				return err
			}

			upstream, err := dhmitm.Dial(ctx, cfg.Relay.Upstream)
			if err != nil {
				return err
			}
			log.WithField("upstream", cfg.Relay.Upstream).Info("connected to responder")

			ln, err := dhmitm.Listen(cfg.Relay.Listen)
			if err != nil {
				_ = upstream.Close()
				return err
			}
			defer ln.Close()
			return r.Run(ctx, upstream, ln)
		},
	}
	cmd.Flags().String("listen", "", "address the initiator connects to")
	cmd.Flags().String("upstream", "", "responder address")
	cmd.Flags().String("capture", "", "write intercepted traffic to this file")
	cmd.Flags().Int("workers", 0, "brute-force goroutines")
	cmd.Flags().String("metrics", "", "serve Prometheus metrics on this address")
	bind(cmd, map[string]string{
		"relay.listen":        "listen",
		"relay.upstream":      "upstream",
		"relay.capture":       "capture",
		"relay.crack_workers": "workers",
		"relay.metrics_addr":  "metrics",
	})
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mterelay/internal/crypto"
	"mterelay/internal/engine"
	"mterelay/internal/instrument"
	"mterelay/internal/log"
	"mterelay/internal/relay"
)

func main() {
	var (
		listen   string
		upstream string
		level    string
		metrics  string
	)
	root := &cobra.Command{
		Use:          "relay",
		Short:        "Reference MTE relay for development and tests",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := log.New("", level, false)
			if err != nil {
				return err
			}
			lg := backend.GetLogger("relay")

			target, err := url.Parse(upstream)
			if err != nil || target.Scheme == "" {
				return errors.New("--upstream must be an absolute URL")
			}
			e, _ := engine.New("", "")
			srv := relay.NewServer(e, crypto.NewAgent(crypto.NewECDHProvider()), httputil.NewSingleHostReverseProxy(target), lg)

			mux := http.NewServeMux()
			mux.Handle("/", srv)
			if metrics != "" {
				instrument.Init()
				go func() {
					if err := http.ListenAndServe(metrics, instrument.Handler()); err != nil {
						lg.Errorf("metrics listener: %v", err)
					}
				}()
			}

			hs := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = hs.Shutdown(sctx)
			}()

			lg.Noticef("relay listening on %s, forwarding to %s", listen, target)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&listen, "listen", ":8080", "listen address")
	root.Flags().StringVar(&upstream, "upstream", "http://127.0.0.1:8081", "upstream base URL")
	root.Flags().StringVar(&level, "log-level", "NOTICE", "ERROR, WARNING, NOTICE, INFO or DEBUG")
	root.Flags().StringVar(&metrics, "metrics", "", "prometheus listen address (empty disables)")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

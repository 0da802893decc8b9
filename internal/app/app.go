package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"mterelay/internal/instrument"
	"mterelay/internal/store"
)

// Setup prepares every endpoint session concurrently. The first run with a
// state directory saves the repository seed so later runs can read the
// durable state back.
func (w *Wire) Setup(ctx context.Context) error {
	if err := w.Repo.Init(ctx); err != nil {
		return err
	}
	if w.seedPath != "" && !w.seedLoaded {
		seed := w.Repo.Seed()
		err := store.SaveSeed(w.seedPath, w.Config.State.Passphrase, *seed)
		seed.Wipe()
		if err != nil {
			return err
		}
		w.seedLoaded = true
		w.log.Noticef("saved state seed to %s", w.seedPath)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range w.sessions {
		s := s
		g.Go(func() error { return s.Setup(gctx) })
	}
	return g.Wait()
}

// ServeMetrics starts the prometheus listener when one is configured.
func (w *Wire) ServeMetrics() {
	addr := w.Config.Metrics.Address
	if addr == "" {
		return
	}
	instrument.Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", instrument.Handler())
	w.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := w.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Errorf("metrics listener: %v", err)
		}
	}()
	w.log.Noticef("metrics on http://%s/metrics", addr)
}

// Close stops the metrics listener and closes the state database.
func (w *Wire) Close() error {
	var errs []error
	if w.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, w.metrics.Shutdown(ctx))
		cancel()
	}
	if w.bolt != nil {
		errs = append(errs, w.bolt.Close())
	}
	return errors.Join(errs...)
}

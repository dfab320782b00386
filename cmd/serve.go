package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/metrics"
	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until interrupted, then drains requests and writes the last pending board.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	saver := persist.NewAsyncSaver(e.adapter, r.config.Storage.SaveRate, r.logger)
	saver.OnError = m.ObserveSaveFailure
	defer saver.Close()

	app := server.NewApp(server.Options{
		Durable:     e.durable,
		Saver:       saver,
		Identity:    e.identity,
		OAuth:       r.oauthProviders(),
		Gateway:     r.gateway(),
		Reflections: reflection.NewCache(r.generator(ctx), r.config.Reflection.TimeoutDuration(), r.logger),
		Metrics:     m,
		Gatherer:    reg,
		Logger:      r.logger,
		OwnerEmail:  r.config.Owner.Email,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("starting server", "addr", addr, "storage", r.config.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ttl := cmd.Duration("session-ttl")
		ticker := time.NewTicker(max(time.Minute, ttl/4))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := app.Sweep(ttl); n > 0 {
					r.logger.Debug("sessions expired", "count", n, "live", app.Sessions())
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		r.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// oauthProviders returns the sign-in providers that have credentials.
func (r *Runner) oauthProviders() []*identity.OAuth {
	var providers []*identity.OAuth
	for _, name := range []string{"google", "facebook"} {
		p, err := r.oauthProvider(name)
		if err != nil {
			r.logger.Debug("sign-in provider disabled", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}
	return providers
}

// gateway returns the PayPal gateway, or nil when it is not configured.
func (r *Runner) gateway() payment.Gateway {
	pp, err := payment.NewPayPal(r.config.Credentials.PayPal)
	if err != nil {
		r.logger.Debug("paypal unavailable", "error", err)
		return nil
	}
	return pp.WithHTTPClient(r.httpClient)
}

// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The wsbridge command accepts XMPP over WebSocket connections (RFC 7395) and
// bridges each of them to an XMPP server that only supports the classic TCP
// transport (RFC 6120).
//
// Usage:
//
//	wsbridge [flags] [target]
//
// The target server can be given as the only argument or with the
// WSBRIDGE_TARGET environment variable.
// Options are read from a YAML file (--config), then from .env and the
// environment, then from flags.
// Run wsbridge --help for the list of flags.
package main // import "mellium.im/wsbridge/cmd/wsbridge"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"mellium.im/wsbridge"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "wsbridge: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	flags := pflag.NewFlagSet("wsbridge", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		configFile = flags.StringP("config", "c", "", "YAML config `file`")
		envFile    = flags.String("env-file", ".env", "file of environment variables to load")
		verbose    = flags.BoolP("verbose", "v", false, "log per frame events, same as --log-level=debug")
		flagCfg    = wsbridge.DefaultConfig()
	)
	flags.StringVarP(&flagCfg.ListenAddr, "listen", "l", flagCfg.ListenAddr, "address to accept WebSocket connections on")
	flags.StringVar(&flagCfg.Path, "path", flagCfg.Path, "HTTP path of the WebSocket endpoint")
	flags.StringVarP(&flagCfg.Target, "target", "t", flagCfg.Target, "host name of the upstream XMPP server")
	flags.IntVarP(&flagCfg.TargetPort, "port", "p", flagCfg.TargetPort, "client port of the upstream XMPP server")
	flags.BoolVar(&flagCfg.LookupSRV, "srv", flagCfg.LookupSRV, "look up SRV records for the target")
	flags.DurationVar(&flagCfg.DialTimeout, "dial-timeout", flagCfg.DialTimeout, "upstream connection timeout, 0 for none")
	flags.IntVar(&flagCfg.MaxFrameSize, "max-frame-size", flagCfg.MaxFrameSize, "largest message accepted from either side in bytes")
	flags.IntVar(&flagCfg.DiscardAfter, "discard-after", flagCfg.DiscardAfter, "reads without a complete frame before buffered data is dropped")
	flags.BoolVar(&flagCfg.RewriteClose, "rewrite-close", flagCfg.RewriteClose, "send </stream:stream> upstream when a client sends <close/>")
	flags.StringSliceVar(&flagCfg.AllowedOrigins, "origin", flagCfg.AllowedOrigins, "allowed WebSocket origin, may be repeated")
	flags.StringVar(&flagCfg.PublicURL, "public-url", flagCfg.PublicURL, "WebSocket URL advertised in host-meta")
	flags.StringVar(&flagCfg.MetricsAddr, "metrics", flagCfg.MetricsAddr, "address to serve metrics on")
	flags.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "one of debug, info, warn, or error")
	flags.StringVar(&flagCfg.LogFormat, "log-format", flagCfg.LogFormat, "json or text")
	flags.DurationVar(&flagCfg.ShutdownTimeout, "shutdown-timeout", flagCfg.ShutdownTimeout, "time allowed for a graceful shutdown")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wsbridge [flags] [target]\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(flags, flagCfg, *configFile, *envFile)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

// loadConfig layers the flags that were set on top of the config from the file
// and the environment.
func loadConfig(flags *pflag.FlagSet, flagCfg wsbridge.Config, configFile, envFile string) (wsbridge.Config, error) {
	cfg, err := wsbridge.LoadConfig(configFile, envFile)
	if err != nil {
		return cfg, err
	}

	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("listen", func() { cfg.ListenAddr = flagCfg.ListenAddr })
	set("path", func() { cfg.Path = flagCfg.Path })
	set("target", func() { cfg.Target = flagCfg.Target })
	set("port", func() { cfg.TargetPort = flagCfg.TargetPort })
	set("srv", func() { cfg.LookupSRV = flagCfg.LookupSRV })
	set("dial-timeout", func() { cfg.DialTimeout = flagCfg.DialTimeout })
	set("max-frame-size", func() { cfg.MaxFrameSize = flagCfg.MaxFrameSize })
	set("discard-after", func() { cfg.DiscardAfter = flagCfg.DiscardAfter })
	set("rewrite-close", func() { cfg.RewriteClose = flagCfg.RewriteClose })
	set("origin", func() { cfg.AllowedOrigins = flagCfg.AllowedOrigins })
	set("public-url", func() { cfg.PublicURL = flagCfg.PublicURL })
	set("metrics", func() { cfg.MetricsAddr = flagCfg.MetricsAddr })
	set("log-level", func() { cfg.LogLevel = flagCfg.LogLevel })
	set("log-format", func() { cfg.LogFormat = flagCfg.LogFormat })
	set("shutdown-timeout", func() { cfg.ShutdownTimeout = flagCfg.ShutdownTimeout })

	switch flags.NArg() {
	case 0:
	case 1:
		cfg.Target = flags.Arg(0)
	default:
		return cfg, fmt.Errorf("expected at most one target, got %d", flags.NArg())
	}
	return cfg, nil
}

func newLogger(cfg wsbridge.Config, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// serve runs the WebSocket listener and the metrics listener until ctx is
// canceled or one of them fails.
func serve(ctx context.Context, cfg wsbridge.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := wsbridge.NewMetrics(reg)

	// Sessions live on hijacked connections that http.Server.Shutdown does not
	// track, so they are canceled through the base context instead.
	sessionCtx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	g, ctx := errgroup.WithContext(ctx)
	servers := []*http.Server{{
		Addr:              cfg.ListenAddr,
		Handler:           wsbridge.Mux(cfg, logger, m),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return sessionCtx },
	}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "target", cfg.TargetAddr())
		cancelSessions()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	logger.Info("bridging", "target", cfg.TargetAddr(), "path", cfg.Path)
	if err := g.Wait(); err != nil {
		logger.Error("bridge terminated with error", "err", err)
		return err
	}
	logger.Info("bridge stopped")
	return nil
}

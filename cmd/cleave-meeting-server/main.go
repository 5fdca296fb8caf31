package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgoltzsche/cleave-meeting/internal/cli"
	"github.com/mgoltzsche/cleave-meeting/internal/server"
	"github.com/mgoltzsche/cleave-meeting/internal/tlsutils"
	"github.com/mgoltzsche/cleave-meeting/pkg/config"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := "/etc/cleave-meeting/config.yaml"
	cfg, err := config.FromFile(configFile)
	configFlag := &config.Flag{File: configFile, Config: &cfg}

	listenAddr := ":8443"
	webDir := "/var/lib/cleave-meeting/ui"
	tlsEnabled := false
	tlsCert := ""
	tlsKey := ""

	flag.Var(configFlag, "config", "Path to the configuration file")
	flag.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "URL pointing to the OpenAI API server used for STT")
	flag.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key of the OpenAI API server")
	flag.StringVar(&cfg.Classifier.URL, "classifier-url", cfg.Classifier.URL, "URL of the remote sentence classifier")
	flag.StringVar(&listenAddr, "listen", listenAddr, "Address the server should listen on")
	flag.StringVar(&webDir, "web-dir", webDir, "Path to the web UI directory")
	flag.BoolVar(&tlsEnabled, "tls", tlsEnabled, "Serve securely via HTTPS/TLS")
	flag.StringVar(&tlsKey, "tls-key", tlsKey, "Path to the TLS key file")
	flag.StringVar(&tlsCert, "tls-cert", tlsCert, "Path to the TLS certificate file")
	cli.ParseFlagsWithEnvVars(flag.CommandLine, "CLEAVE_")

	if !configFlag.IsSet && err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(err.Error())
		os.Exit(1)
	}

	err = cfg.Validate()
	if err != nil {
		slog.Error(fmt.Sprintf("invalid configuration: %s", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, listenAddr, webDir, tlsEnabled, tlsCert, tlsKey)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config.Configuration, listenAddr, webDir string, tlsEnabled bool, tlsCert, tlsKey string) error {
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:        listenAddr,
		BaseContext: func(net.Listener) context.Context { return ctx },
		Handler:     mux,
	}

	err := server.AddRoutes(ctx, cfg, webDir, mux)
	if err != nil {
		return err
	}

	if tlsEnabled && tlsCert == "" && tlsKey == "" {
		slog.Info("generating self-signed TLS certificate")

		cert, err := tlsutils.SelfSignedCertificate()
		if err != nil {
			return fmt.Errorf("generating tls certificate: %w", err)
		}

		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info(fmt.Sprintf("listening on %s", srv.Addr))

		var err error
		if tlsEnabled {
			err = srv.ListenAndServeTLS(tlsCert, tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("terminating")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

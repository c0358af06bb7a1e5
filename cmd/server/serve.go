package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"couchsync/internal/config"
	"couchsync/internal/fanout"
	"couchsync/internal/hertzapi"
	"couchsync/internal/hertzws"
	"couchsync/internal/httpapi"
	"couchsync/internal/session"
	"couchsync/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "couchsync",
		Short:         "Shared watch session server: synced playback, chat and voice signaling",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
				zerolog.SetGlobalLevel(lvl)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.Int("port", 3000, "listen port")
	flags.String("transport", config.TransportHertz, "HTTP stack: hertz or echo")
	_ = v.BindPFlag("port", flags.Lookup("port"))
	_ = v.BindPFlag("transport", flags.Lookup("transport"))

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	hub := fanout.NewHub()
	sess := session.New(hub, session.WithHistoryCap(cfg.HistoryCap))
	dispatcher := ws.NewDispatcher(sess, hub)
	opts := ws.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	}

	log.Info().Str("addr", cfg.Addr()).Str("transport", cfg.Transport).Msg("server starting")

	switch cfg.Transport {
	case config.TransportEcho:
		return serveEcho(ctx, cfg, sess, ws.NewHandler(ctx, hub, dispatcher, opts))
	default:
		return serveHertz(ctx, cfg, sess, hertzws.NewHandler(ctx, hub, dispatcher, opts))
	}
}

func serveHertz(ctx context.Context, cfg *config.Config, sess *session.Session, wsHandler *hertzws.Handler) error {
	h := server.Default(server.WithHostPorts(cfg.Addr()))
	hertzapi.NewRouter(h, sess, wsHandler, cfg.StaticPath)

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Run()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("hertz server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func serveEcho(ctx context.Context, cfg *config.Config, sess *session.Session, wsHandler *ws.Handler) error {
	api := httpapi.NewServer(sess, wsHandler, cfg.StaticPath)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/bot"
	"github.com/domino14/connectfour/config"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
)

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Info().Msgf("Loaded config: %v, exPath: %v", cfg.SanitizedSettings(), exPath)
	cfg.AdjustRelativePaths(exPath)

	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	b := bot.NewBot(cfg)
	sub, err := b.Serve(nc, cfg.GetString(config.ConfigSolveSubject))
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe-failed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("got quit signal...")

	// Let in-flight requests finish.
	if err := sub.Drain(); err != nil {
		log.Err(err).Msg("drain-subscription")
	}
	done := make(chan struct{})
	nc.SetClosedHandler(func(*nats.Conn) { close(done) })
	if err := nc.Drain(); err != nil {
		log.Err(err).Msg("drain-connection")
		nc.Close()
	}
	select {
	case <-done:
	case <-time.After(GracefulShutdownTimeout):
		log.Warn().Msg("drain-timed-out")
	}
	log.Info().Msg("server gracefully shutting down")
}

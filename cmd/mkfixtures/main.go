// Command mkfixtures writes fixture files of random positions scored at a
// given depth.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/fixturegen"
)

func main() {
	count := pflag.Int("count", 1000, "number of positions")
	moves := pflag.Int("moves", 12, "stones in each position")
	depth := pflag.Int("depth", 8, "search depth for the expected scores")
	seed := pflag.String("seed", "", "seed for reproducible output")
	out := pflag.String("out", "", "output file; stdout if empty")
	debug := pflag.Bool("debug", false, "debug logging on")
	pflag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := fixturegen.Options{Count: *count, Moves: *moves, Depth: *depth}
	if *seed != "" {
		opts.Seed = []byte(*seed)
	}
	cases, err := fixturegen.Generate(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Int("generated", len(cases)).Msg("generate-failed")
	}

	w := os.Stdout
	if *out != "" {
		w, err = os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("create-output")
		}
		defer w.Close()
	}
	if err := fixture.Write(w, cases); err != nil {
		log.Fatal().Err(err).Msg("write-fixtures")
	}
	log.Info().Int("cases", len(cases)).Int("moves", *moves).Int("depth", *depth).
		Uint64("fingerprint", fixture.Fingerprint(cases)).Msg("wrote-fixtures")
}

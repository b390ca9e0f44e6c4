// Command bench runs fixture files through the solver, prints a report per
// file and stores the runs in the results database. It exits with status 1
// if any score differs from the expected one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/bench"
	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg.AdjustRelativePaths(exPath)

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Debug().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		f, err := os.Create(path)
		if err != nil {
			panic("could not create CPU profile: " + err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	names := cfg.Args()
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench [flags] <fixture file...>")
		return 2
	}
	rows := cfg.GetInt(config.ConfigFixtureRows)
	suites := make([]*fixture.Suite, 0, len(names))
	for _, name := range names {
		s, err := fixture.Load(fixture.Resolve(cfg, name), rows)
		if err != nil {
			log.Err(err).Str("fixture", name).Msg("load-failed")
			return 2
		}
		suites = append(suites, s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, err := bench.RunAll(ctx, suites, bench.Options{
		Depth:   cfg.GetInt(config.ConfigDepth),
		Threads: cfg.GetInt(config.ConfigBenchThreads),
	})
	for _, r := range reports {
		r.WriteText(os.Stdout, cfg.GetBool(config.ConfigDebug))
	}
	if err != nil {
		log.Err(err).Msg("bench-failed")
		return 2
	}

	if dbPath := cfg.GetString(config.ConfigResultsDB); dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			log.Err(err).Msg("open-results-db")
			return 2
		}
		defer db.Close()
		for _, r := range reports {
			if _, err := db.SaveRun(ctx, r); err != nil {
				log.Err(err).Str("suite", r.Suite).Msg("save-run")
			}
		}
	}

	if mm := bench.Mismatches(reports); len(mm) > 0 {
		log.Error().Int("mismatches", len(mm)).Msg("bench-mismatches")
		return 1
	}
	return 0
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/bot"
	"github.com/domino14/connectfour/config"
)

// publisher is the part of a NATS connection the handler replies with.
type publisher interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

var cfg *config.Config
var nc publisher

func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (string, error) {
	logger := log.With().
		Str("sequence", evt.Sequence).
		Int("depth", evt.Depth).
		Logger()

	resp := bot.NewBot(cfg).Solve(bot.SolveRequest{Sequence: evt.Sequence, Depth: evt.Depth})
	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return string(data), fmt.Errorf("solve failed: %s", resp.Error)
	}

	if evt.ReplyChannel != "" && nc != nil {
		logger.Info().Msg("solve-success-sending-via-nats")
		err = retry.Do(
			func() error {
				// We're just waiting for an acknowledgement. The actual
				// data doesn't matter.
				_, err := nc.Request(evt.ReplyChannel, data, 3*time.Second)
				return err
			},
			retry.Context(ctx),
			retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
				logger.Err(err).Uint("n", n).
					Msg("did-not-receive-ack-try-again")
				return retry.BackOffDelay(n, err, config)
			}),
		)
		if err != nil {
			logger.Err(err).Msg("solve-reply-failed")
		}
	}
	logger.Info().Int("score", resp.Score).Int("best", resp.BestColumn).Msg("exiting-fn")
	return string(data), nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg = config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("load-config")
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	conn, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}
	nc = conn

	lambda.Start(HandleRequest)
}

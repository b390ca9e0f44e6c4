// Package bot answers solve requests over NATS. Requests and responses are
// JSON; every request is solved on a fresh Solver.
package bot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/negamax"
)

// QueueGroup is the NATS queue group that bot instances share, so each
// request is handled by only one of them.
const QueueGroup = "connectfour-solvers"

var errBadDepth = errors.New("depth must not be negative")

type SolveRequest struct {
	Sequence string `json:"sequence"`
	// Depth 0 means the configured default depth.
	Depth int `json:"depth"`
}

type SolveResponse struct {
	Sequence string `json:"sequence"`
	// Consumed is the number of moves of Sequence that were replayed.
	Consumed int `json:"consumed"`
	Score    int `json:"score"`
	// BestColumn is numbered from 1. It is 0 when the board is full.
	BestColumn int    `json:"best_column"`
	Nodes      uint64 `json:"nodes"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Error      string `json:"error,omitempty"`
}

// LambdaEvent is the payload of a lambda invocation. When ReplyChannel is
// set the response is also published there.
type LambdaEvent struct {
	Sequence     string `json:"sequence"`
	Depth        int    `json:"depth"`
	ReplyChannel string `json:"reply_channel"`
}

type Bot struct {
	config *config.Config
}

func NewBot(cfg *config.Config) *Bot {
	return &Bot{config: cfg}
}

func errorResponse(req SolveRequest, message string, err error) *SolveResponse {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &SolveResponse{Sequence: req.Sequence, Error: msg}
}

// Solve replays the request's sequence, scores the position and finds the
// best column at the same depth.
func (bot *Bot) Solve(req SolveRequest) *SolveResponse {
	if err := fixture.ValidateSequence(req.Sequence); err != nil {
		return errorResponse(req, "Could not parse sequence", err)
	}
	depth := req.Depth
	if depth < 0 {
		return errorResponse(req, "Could not solve", errBadDepth)
	}
	if depth == 0 {
		depth = bot.config.GetInt(config.ConfigDepth)
	}

	solver := negamax.NewSolver()
	consumed := solver.PlaySequence(req.Sequence)
	score := solver.Solve(depth)
	nodes := solver.NodeCount()
	elapsed := solver.ElapsedTimeMs()

	resp := &SolveResponse{
		Sequence: req.Sequence,
		Consumed: consumed,
		Score:    score,
	}
	col, _, err := solver.BestMove(depth)
	if err == nil {
		resp.BestColumn = col + 1
	} else if !errors.Is(err, negamax.ErrNoMoves) {
		return errorResponse(req, "Could not find best move", err)
	}
	resp.Nodes = nodes + solver.NodeCount()
	resp.ElapsedMs = elapsed + solver.ElapsedTimeMs()
	log.Info().Str("sequence", req.Sequence).Int("depth", depth).Int("score", score).
		Int("best", resp.BestColumn).Uint64("nodes", resp.Nodes).Msg("solved-request")
	return resp
}

func (bot *Bot) handle(data []byte) *SolveResponse {
	req := SolveRequest{}
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(req, "Could not parse request", err)
	}
	return bot.Solve(req)
}

// Serve subscribes to subject and answers every request on it until the
// subscription is drained or the connection closed.
func (bot *Bot) Serve(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(subject, QueueGroup, func(m *nats.Msg) {
		log.Debug().Int("bytes", len(m.Data)).Msg("received-request")
		data, err := json.Marshal(bot.handle(m.Data))
		if err != nil {
			// Should never happen, ideally, but we need to do something sensible here.
			m.Respond([]byte(err.Error()))
			return
		}
		if err := m.Respond(data); err != nil {
			log.Err(err).Msg("respond-failed")
		}
	})
	if err != nil {
		return nil, err
	}
	if err := nc.Flush(); err != nil {
		return nil, err
	}
	if err := nc.LastError(); err != nil {
		return nil, err
	}
	log.Info().Str("subject", subject).Msg("listening")
	return sub, nil
}

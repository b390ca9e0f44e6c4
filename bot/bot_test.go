package bot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/domino14/connectfour/config"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func TestSolve(t *testing.T) {
	is := is.New(t)
	b := NewBot(config.DefaultConfig())

	resp := b.Solve(SolveRequest{Sequence: "334323", Depth: 1})
	is.Equal(resp.Error, "")
	is.Equal(resp.Consumed, 6)
	is.Equal(resp.Score, 18)
	is.Equal(resp.BestColumn, 5)
	is.True(resp.Nodes > 0)

	// the winning seventh move is not replayed
	resp = b.Solve(SolveRequest{Sequence: "3343231", Depth: 3})
	is.Equal(resp.Consumed, 6)
	is.Equal(resp.Score, 18)
}

func TestSolveDefaultDepth(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigDepth, 2)
	b := NewBot(cfg)
	resp := b.Solve(SolveRequest{Sequence: "22334"})
	is.Equal(resp.Error, "")
	is.Equal(resp.Score, -18)
}

func TestSolveBadRequests(t *testing.T) {
	is := is.New(t)
	b := NewBot(config.DefaultConfig())

	resp := b.Solve(SolveRequest{Sequence: "12x4", Depth: 2})
	is.True(strings.HasPrefix(resp.Error, "Could not parse sequence"))

	resp = b.Solve(SolveRequest{Sequence: "44", Depth: -1})
	is.True(strings.Contains(resp.Error, errBadDepth.Error()))

	resp = b.handle([]byte(`{"sequence": 44}`))
	is.True(strings.HasPrefix(resp.Error, "Could not parse request"))
}

func TestHandleJSON(t *testing.T) {
	is := is.New(t)
	b := NewBot(config.DefaultConfig())
	resp := b.handle([]byte(`{"sequence": "5443354556", "depth": 4}`))
	is.Equal(resp.Score, 16)
	is.Equal(resp.BestColumn, 2)

	data, err := json.Marshal(resp)
	is.NoErr(err)
	var fields map[string]any
	is.NoErr(json.Unmarshal(data, &fields))
	for _, k := range []string{"sequence", "consumed", "score", "best_column", "nodes", "elapsed_ms"} {
		_, ok := fields[k]
		is.True(ok)
	}
	_, hasError := fields["error"]
	is.True(!hasError)
}

// fakeConn answers requests with a bot, after failing a number of times.
type fakeConn struct {
	bot      *Bot
	failures int
	calls    int
	subjects []string
}

func (f *fakeConn) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.calls++
	f.subjects = append(f.subjects, subj)
	if f.calls <= f.failures {
		return nil, nats.ErrTimeout
	}
	out, err := json.Marshal(f.bot.handle(data))
	if err != nil {
		return nil, err
	}
	return &nats.Msg{Subject: subj, Data: out}, nil
}

func TestClientRetries(t *testing.T) {
	is := is.New(t)
	conn := &fakeConn{bot: NewBot(config.DefaultConfig()), failures: 2}
	c := NewClient(conn, config.DefaultSolveSubject)
	resp, err := c.Solve(context.Background(), SolveRequest{Sequence: "334323", Depth: 1})
	is.NoErr(err)
	is.Equal(resp.Score, 18)
	is.Equal(conn.calls, 3)
	is.Equal(conn.subjects[0], "connectfour.solve")
}

func TestClientGivesUp(t *testing.T) {
	is := is.New(t)
	conn := &fakeConn{bot: NewBot(config.DefaultConfig()), failures: 10}
	c := NewClient(conn, "solve")
	_, err := c.Solve(context.Background(), SolveRequest{Sequence: "44", Depth: 1})
	is.True(errors.Is(err, nats.ErrTimeout))
	is.Equal(conn.calls, requestRetries)
}

func TestClientBotError(t *testing.T) {
	is := is.New(t)
	conn := &fakeConn{bot: NewBot(config.DefaultConfig())}
	c := NewClient(conn, "solve")
	resp, err := c.Solve(context.Background(), SolveRequest{Sequence: "9", Depth: 1})
	is.True(err != nil)
	is.True(strings.HasPrefix(err.Error(), "Bot returned: Could not parse sequence"))
	is.Equal(resp.Sequence, "9")
	is.Equal(conn.calls, 1)
}

func TestParseLine(t *testing.T) {
	is := is.New(t)
	req, err := parseLine("4453 7")
	is.NoErr(err)
	is.Equal(req, SolveRequest{Sequence: "4453", Depth: 7})
	req, err = parseLine("  4453 ")
	is.NoErr(err)
	is.Equal(req, SolveRequest{Sequence: "4453"})
	_, err = parseLine("")
	is.Equal(err, errNoData)
	_, err = parseLine("44 x")
	is.True(err != nil)
	_, err = parseLine("44 1 2")
	is.True(err != nil)
}

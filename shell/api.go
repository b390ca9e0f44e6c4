package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/bench"
	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/fixture"
	"github.com/domino14/connectfour/fixturegen"
	"github.com/domino14/connectfour/store"
)

const (
	defaultGenMoves = 12
	defaultGenDepth = 8
	defaultRunLimit = 10
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

// runContext starts a cancelable command. Interrupt and Cancel stop it
// until done is called.
func (sc *ShellController) runContext() (ctx context.Context, done func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancel()
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel
	sc.running = true
	return ctx, func() {
		sc.mu.Lock()
		sc.running = false
		sc.mu.Unlock()
		cancel()
	}
}

func (sc *ShellController) depth(cmd *shellcmd) (int, error) {
	d, err := cmd.options.IntDefault("depth", sc.config.GetInt(config.ConfigDepth))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("depth must not be negative")
	}
	return d, nil
}

func (sc *ShellController) positionText() string {
	moves := sc.played
	if moves == "" {
		moves = "(none)"
	}
	return sc.solver.Position().ToDisplayText() + "moves: " + moves
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	sc.solver.Position().Reset()
	sc.played = ""
	return msg(sc.positionText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.positionText()), nil
}

// stopReason explains why replay stopped at seq[idx].
func stopReason(p *board.Position, seq string, idx int) string {
	col := int(seq[idx]) - '1'
	switch {
	case col < 0 || col >= board.Width:
		return fmt.Sprintf("%q is not a column from 1 to %d", seq[idx], board.Width)
	case !p.CanPlay(col):
		return fmt.Sprintf("column %d is full", col+1)
	default:
		return fmt.Sprintf("column %d wins the game and was not played", col+1)
	}
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: play <sequence>")
	}
	seq := cmd.args[0]
	p := sc.solver.Position()
	n := p.PlaySequence(seq)
	sc.played += seq[:n]
	log.Debug().Str("sequence", seq).Int("consumed", n).Msg("played-sequence")
	if n < len(seq) {
		return msg(fmt.Sprintf("%s\nstopped at move %d: %s", sc.positionText(), n+1,
			stopReason(p, seq, n))), nil
	}
	return msg(sc.positionText()), nil
}

// drop plays a single column, reporting a full or missing column as an
// error rather than stopping quietly like play.
func (sc *ShellController) drop(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: drop <column>")
	}
	n, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, fmt.Errorf("column %q is not a number", cmd.args[0])
	}
	col := n - 1
	p := sc.solver.Position()
	if col >= 0 && col < board.Width && p.CanPlay(col) && p.IsWinningMove(col) {
		return nil, fmt.Errorf("column %d wins the game and was not played", n)
	}
	if err := p.TryPlay(col); err != nil {
		return nil, err
	}
	sc.played += strconv.Itoa(n)
	return msg(sc.positionText()), nil
}

func describeScore(score int) string {
	switch {
	case score > 0:
		return "side to move wins"
	case score < 0:
		return "side to move loses"
	default:
		return "no win found"
	}
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	depth, err := sc.depth(cmd)
	if err != nil {
		return nil, err
	}
	score := sc.solver.Solve(depth)
	return msg(fmt.Sprintf("score %d, %s (depth %d, %d nodes, %v)", score,
		describeScore(score), depth, sc.solver.NodeCount(),
		sc.solver.Elapsed().Round(time.Microsecond))), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	depth, err := sc.depth(cmd)
	if err != nil {
		return nil, err
	}
	col, score, err := sc.solver.BestMove(depth)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("best column %d, score %d (depth %d, %d nodes)",
		col+1, score, depth, sc.solver.NodeCount())), nil
}

func (sc *ShellController) scores(cmd *shellcmd) (*Response, error) {
	depth, err := sc.depth(cmd)
	if err != nil {
		return nil, err
	}
	var cells [board.Width]string
	for i := range cells {
		cells[i] = "-"
	}
	for _, ms := range sc.solver.ScoreMoves(depth) {
		cells[ms.Column] = strconv.Itoa(ms.Score)
	}
	var sb strings.Builder
	for c := range cells {
		fmt.Fprintf(&sb, "%4d", c+1)
	}
	sb.WriteString("\n")
	for _, cell := range cells {
		fmt.Fprintf(&sb, "%4s", cell)
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) bench(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: bench <file...> [-rows n] [-threads n] [-depth n]")
	}
	rows, err := cmd.options.IntDefault("rows", sc.config.GetInt(config.ConfigFixtureRows))
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigBenchThreads))
	if err != nil {
		return nil, err
	}
	depth, err := sc.depth(cmd)
	if err != nil {
		return nil, err
	}

	suites := make([]*fixture.Suite, 0, len(cmd.args))
	for _, name := range cmd.args {
		s, err := fixture.LoadCached(sc.config, fixture.Resolve(sc.config, name), rows)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}

	ctx, done := sc.runContext()
	defer done()
	reports, err := bench.RunAll(ctx, suites, bench.Options{Depth: depth, Threads: threads})
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, r := range reports {
		if cmd.options.Bool("yaml") {
			err = r.WriteYAML(&out)
		} else {
			err = r.WriteText(&out, cmd.options.Bool("histogram"))
		}
		if err != nil {
			return nil, err
		}
	}
	if cmd.options.Bool("save") {
		ids, err := sc.saveReports(reports)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&out, "saved runs %v\n", ids)
	}
	return msg(strings.TrimRight(out.String(), "\n")), nil
}

func (sc *ShellController) saveReports(reports []*bench.Report) ([]int64, error) {
	db, err := store.Open(sc.config.GetString(config.ConfigResultsDB))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	ids := make([]int64, 0, len(reports))
	for _, r := range reports {
		id, err := db.SaveRun(context.Background(), r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (sc *ShellController) runs(cmd *shellcmd) (*Response, error) {
	limit, err := cmd.options.IntDefault("limit", defaultRunLimit)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(sc.config.GetString(config.ConfigResultsDB))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	runs, err := db.Runs(context.Background(), limit)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return msg("no saved runs"), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s  %-20s  %-24s %5s %6s %6s %6s %10s %12s\n",
		"id", "started", "suite", "depth", "rows", "passed", "failed", "mean ms", "mean nodes")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%5d  %-20s  %-24s %5d %6d %6d %6d %10.3f %12.1f\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Suite, r.Depth,
			r.Rows, r.Passed, r.Failed, r.MeanMs, r.MeanNodes)
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) gen(cmd *shellcmd) (*Response, error) {
	count, err := cmd.options.Int("n")
	if err != nil {
		return nil, errors.New("usage: gen -n <count> [-moves m] [-depth d] [-out file]")
	}
	moves, err := cmd.options.IntDefault("moves", defaultGenMoves)
	if err != nil {
		return nil, err
	}
	depth, err := cmd.options.IntDefault("depth", defaultGenDepth)
	if err != nil {
		return nil, err
	}
	var seed []byte
	if s := cmd.options.String("seed"); s != "" {
		seed = []byte(s)
	}
	ctx, done := sc.runContext()
	defer done()
	cases, err := fixturegen.Generate(ctx, fixturegen.Options{
		Count: count, Moves: moves, Depth: depth, Seed: seed,
	})
	if err != nil {
		return nil, err
	}

	out := cmd.options.String("out")
	if out == "" {
		var buf bytes.Buffer
		if err := fixture.Write(&buf, cases); err != nil {
			return nil, err
		}
		return msg(strings.TrimRight(buf.String(), "\n")), nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	if err := fixture.Write(f, cases); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("wrote %d cases at depth %d to %s", len(cases), depth, out)), nil
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: set <key> <value>")
	}
	key, value := cmd.args[0], cmd.args[1]
	sc.config.Set(key, value)
	if key == config.ConfigDebug {
		if sc.config.GetBool(config.ConfigDebug) {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}
	return msg("set " + key + " to " + value), nil
}

func (sc *ShellController) showConfig(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 1 && cmd.args[0] == "write" {
		if err := sc.config.Write(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
		return msg("config saved"), nil
	}
	return msg(sc.config.SanitizedSettings()), nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return usage("standard")
	}
	return usageTopic(cmd.args[0])
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/config"
)

var (
	errNoData = errors.New("no data in this line")
)

type Response struct {
	message string
}

func Msg(message string) *Response {
	return &Response{message: message}
}

// ShellController is a small REPL that sends every line to a remote bot.
type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config
	client *Client
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func NewShellController(cfg *config.Config, client *Client) *ShellController {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mc4-remote>\033[0m ",
		HistoryFile:     cfg.GetString(config.ConfigHistoryFile),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	return &ShellController{l: l, out: l.Stderr(), config: cfg, client: client}
}

// parseLine reads "<sequence> [depth]".
func parseLine(line string) (SolveRequest, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return SolveRequest{}, errNoData
	}
	if len(fields) > 2 {
		return SolveRequest{}, errors.New("usage: <sequence> [depth]")
	}
	req := SolveRequest{Sequence: fields[0]}
	if len(fields) == 2 {
		d, err := strconv.Atoi(fields[1])
		if err != nil {
			return SolveRequest{}, err
		}
		req.Depth = d
	}
	return req, nil
}

func formatResponse(resp *SolveResponse) string {
	return fmt.Sprintf("score %d, best column %d (%d of %d moves replayed, %d nodes, %d ms)",
		resp.Score, resp.BestColumn, resp.Consumed, len(resp.Sequence), resp.Nodes, resp.ElapsedMs)
}

func (sc *ShellController) handle(ctx context.Context, line string) (*Response, error) {
	req, err := parseLine(line)
	if err != nil {
		return nil, err
	}
	resp, err := sc.client.Solve(ctx, req)
	if err != nil {
		return nil, err
	}
	return Msg(formatResponse(resp)), nil
}

func (sc *ShellController) Loop(ctx context.Context, sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)

		if line == "exit" {
			sig <- syscall.SIGINT
			break
		} else if line == "" {
			continue
		}
		resp, err := sc.handle(ctx, line)
		if err != nil {
			sc.showError(err)
		} else if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

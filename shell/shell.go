package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/config"
	"github.com/domino14/connectfour/negamax"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errUnknownCommand    = errors.New("unknown command")
	errQuit              = errors.New("sending quit signal")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

// ShellController runs the interactive solver shell. It keeps one Solver
// whose position is built up with the play command.
type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	solver *negamax.Solver
	// played holds the columns replayed onto the solver's position, as
	// digits.
	played string

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
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

func newController(cfg *config.Config, out io.Writer) *ShellController {
	return &ShellController{
		out:    out,
		config: cfg,
		solver: negamax.NewSolver(),
		cancel: func() {},
	}
}

func NewShellController(cfg *config.Config) *ShellController {
	sc := newController(cfg, nil)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[33mconnectfour>\033[0m ",
		HistoryFile:     cfg.GetString(config.ConfigHistoryFile),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// Cancel interrupts a running bench or gen between cases.
func (sc *ShellController) Cancel() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cancel()
}

// Interrupt cancels the running bench or gen, if any, and reports whether
// there was one.
func (sc *ShellController) Interrupt() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.running {
		return false
	}
	sc.cancel()
	return true
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for i := 1; i < len(fields); i++ {
		if strings.HasPrefix(fields[i], "-") && !isNumber(fields[i]) {
			// option
			if i+1 >= len(fields) {
				return nil, errWrongOptionSyntax
			}
			key := fields[i][1:]
			options[key] = append(options[key], fields[i+1])
			i++
			continue
		}
		args = append(args, fields[i])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		if sig != nil {
			sig <- syscall.SIGINT
		}
		return nil, errQuit
	default:
		return sc.execute(cmd)
	}
}

func (sc *ShellController) execute(cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "help":
		return sc.help(cmd)
	case "new", "n":
		return sc.newGame(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "drop", "d":
		return sc.drop(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "solve":
		return sc.solve(cmd)
	case "best":
		return sc.best(cmd)
	case "scores":
		return sc.scores(cmd)
	case "bench":
		return sc.bench(cmd)
	case "runs":
		return sc.runs(cmd)
	case "gen":
		return sc.gen(cmd)
	case "script":
		return sc.script(cmd)
	case "set":
		return sc.set(cmd)
	case "config":
		return sc.showConfig(cmd)
	default:
		log.Debug().Str("cmd", cmd.cmd).Msg("unknown-command")
		return nil, fmt.Errorf("%w: %s", errUnknownCommand, strconv.Quote(cmd.cmd))
	}
}

// Execute runs one shell line and returns its output.
func (sc *ShellController) Execute(line string) (string, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return "", err
	}
	resp, err := sc.execute(cmd)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.message, nil
}

func (sc *ShellController) Loop(sig chan os.Signal) {
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
		if line == "" {
			continue
		}
		resp, err := sc.standardModeSwitch(line, sig)
		if err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			sc.showError(err)
		} else if resp != nil && resp.message != "" {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

package shell

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cjoudrey/gluahttp"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/domino14/connectfour/config"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("c4_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// runLine runs a shell line for a Lua function and pushes its output, or
// nil and the error message.
func runLine(L *lua.LState, line string) int {
	sc := getShell(L)
	out, err := sc.Execute(line)
	if err != nil {
		log.Err(err).Str("line", line).Msg("error-executing-script-line")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(out))
	// return number of results pushed to stack.
	return 1
}

func New(L *lua.LState) int {
	return runLine(L, "new")
}

func Play(L *lua.LState) int {
	return runLine(L, "play "+L.CheckString(1))
}

func Show(L *lua.LState) int {
	return runLine(L, "show")
}

func Bench(L *lua.LState) int {
	return runLine(L, "bench "+L.CheckString(1))
}

func scriptDepth(L *lua.LState, sc *ShellController) int {
	d := L.OptInt(1, sc.config.GetInt(config.ConfigDepth))
	if d < 0 {
		L.ArgError(1, "depth must not be negative")
	}
	return d
}

// Solve returns the score of the current position and the node count.
func Solve(L *lua.LState) int {
	sc := getShell(L)
	score := sc.solver.Solve(scriptDepth(L, sc))
	L.Push(lua.LNumber(score))
	L.Push(lua.LNumber(sc.solver.NodeCount()))
	return 2
}

// Best returns the best column, numbered from 1, and its score.
func Best(L *lua.LState) int {
	sc := getShell(L)
	col, score, err := sc.solver.BestMove(scriptDepth(L, sc))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(col + 1))
	L.Push(lua.LNumber(score))
	return 2
}

func (sc *ShellController) newLuaState() *lua.LState {
	L := lua.NewState()
	luajson.Preload(L)
	// scripts can fetch fixture files and post bench reports
	L.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{Timeout: 30 * time.Second}).Loader)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("c4_shell", lsc)
	L.SetGlobal("c4_new", L.NewFunction(New))
	L.SetGlobal("c4_play", L.NewFunction(Play))
	L.SetGlobal("c4_show", L.NewFunction(Show))
	L.SetGlobal("c4_solve", L.NewFunction(Solve))
	L.SetGlobal("c4_best", L.NewFunction(Best))
	L.SetGlobal("c4_bench", L.NewFunction(Bench))
	return L
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("need arguments for script")
	}
	filepath := cmd.args[0]

	L := sc.newLuaState()
	defer L.Close()

	// extra arguments are visible to the script as arg[1], arg[2], ...
	argt := L.NewTable()
	for i, a := range cmd.args[1:] {
		argt.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", argt)

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	if ret := L.GetGlobal("result"); ret != lua.LNil {
		return msg(ret.String()), nil
	}
	return msg("script " + strconv.Quote(filepath) + " finished"), nil
}

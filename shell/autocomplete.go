package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/domino14/connectfour/config"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"solve":  {Options: []string{"-depth"}},
	"best":   {Options: []string{"-depth"}},
	"scores": {Options: []string{"-depth"}},
	"bench": {
		Options: []string{"-rows", "-threads", "-depth", "-save", "-yaml", "-histogram"},
	},
	"runs": {Options: []string{"-limit"}},
	"gen":  {Options: []string{"-n", "-moves", "-depth", "-seed", "-out"}},
	"set": {
		Args: []string{
			config.ConfigDebug, config.ConfigDepth, config.ConfigFixturePath,
			config.ConfigFixtureRows, config.ConfigBenchThreads, config.ConfigResultsDB,
		},
	},
	"config": {Args: []string{"write"}},
	"help":   {Args: []string{"play", "solve", "bench", "gen", "script"}},
}

var commandNames = []string{
	"help", "new", "play", "drop", "show", "solve", "best", "scores", "bench", "runs",
	"gen", "script", "set", "config", "exit",
}

var boolValues = []string{"true", "false"}

// fixtureNames lists the files in the configured fixture directory.
func (c *ShellCompleter) fixtureNames() []string {
	entries, err := os.ReadDir(c.sc.config.GetString(config.ConfigFixturePath))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		// unterminated quote
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "save", "yaml", "histogram":
				completions = boolValues
			}
		}

		if completions == nil {
			metadata := commandMetadata[cmdName]
			switch {
			case strings.HasPrefix(prefix, "-"):
				completions = metadata.Options
			case cmdName == "bench":
				completions = c.fixtureNames()
			case cmdName == "script":
				completions, _ = filepath.Glob(prefix + "*.lua")
			case len(metadata.Args) > 0:
				completions = metadata.Args
			default:
				completions = metadata.Options
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

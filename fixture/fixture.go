// Package fixture reads and writes solver test files. Each line holds a
// move sequence of 1-indexed column digits and the score expected for the
// position it leads to, separated by a space:
//
//	2252576253462244111563365343671351441 -1
package fixture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connectfour/board"
	"github.com/domino14/connectfour/cache"
	"github.com/domino14/connectfour/config"
)

var (
	ErrMalformedLine = errors.New("malformed fixture line")
	ErrBadSequence   = errors.New("bad move sequence")
)

// Case is one fixture line.
type Case struct {
	Sequence string `json:"sequence" yaml:"sequence"`
	Expected int    `json:"expected" yaml:"expected"`
	// Line is the 1-based line number in the source file.
	Line int `json:"line" yaml:"line"`
}

// Suite is a parsed fixture file.
type Suite struct {
	Name  string
	Path  string
	Cases []Case
	// Fingerprint is a hash of the rows that were read, so benchmark runs
	// over the same data can be compared even if the file is renamed.
	Fingerprint uint64
}

// ValidateSequence checks that seq only names columns 1 through 7.
func ValidateSequence(seq string) error {
	for i := 0; i < len(seq); i++ {
		if seq[i] < '1' || seq[i] >= '1'+board.Width {
			return fmt.Errorf("%w: %q at index %d", ErrBadSequence, seq[i], i)
		}
	}
	return nil
}

func parseLine(line string, lineNo int) (Case, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Case{}, fmt.Errorf("%w: line %d: expected 2 fields, got %d",
			ErrMalformedLine, lineNo, len(fields))
	}
	if err := ValidateSequence(fields[0]); err != nil {
		return Case{}, fmt.Errorf("line %d: %w", lineNo, err)
	}
	score, err := strconv.Atoi(fields[1])
	if err != nil {
		return Case{}, fmt.Errorf("%w: line %d: score %q is not an integer",
			ErrMalformedLine, lineNo, fields[1])
	}
	return Case{Sequence: fields[0], Expected: score, Line: lineNo}, nil
}

// Parse reads at most maxRows cases from r. maxRows <= 0 reads everything.
// Blank lines are skipped and do not count as rows.
func Parse(r io.Reader, name string, maxRows int) (*Suite, error) {
	suite := &Suite{Name: name}
	digest := xxhash.New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if maxRows > 0 && len(suite.Cases) >= maxRows {
			break
		}
		c, err := parseLine(line, lineNo)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		suite.Cases = append(suite.Cases, c)
		fmt.Fprintf(digest, "%s %d\n", c.Sequence, c.Expected)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	suite.Fingerprint = digest.Sum64()
	return suite, nil
}

// Load parses the fixture file at path.
func Load(path string, maxRows int) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	suite, err := Parse(f, filepath.Base(path), maxRows)
	if err != nil {
		return nil, err
	}
	suite.Path = path
	log.Debug().Str("path", path).Int("cases", len(suite.Cases)).
		Uint64("fingerprint", suite.Fingerprint).Msg("loaded-fixture")
	return suite, nil
}

// LoadCached is Load through the process-wide cache. Suites returned from
// it are shared and must not be modified.
func LoadCached(cfg *config.Config, path string, maxRows int) (*Suite, error) {
	key := fmt.Sprintf("fixture:%s:%d", path, maxRows)
	obj, err := cache.Load(cfg, key, func(cfg *config.Config, key string) (any, error) {
		return Load(path, maxRows)
	})
	if err != nil {
		return nil, err
	}
	return obj.(*Suite), nil
}

// Resolve finds a fixture file. Relative names that don't exist from the
// working directory are looked up in the configured fixture directory.
func Resolve(cfg *config.Config, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(cfg.GetString(config.ConfigFixturePath), name)
}

// Write writes cases in fixture format.
func Write(w io.Writer, cases []Case) error {
	bw := bufio.NewWriter(w)
	for _, c := range cases {
		if _, err := fmt.Fprintf(bw, "%s %d\n", c.Sequence, c.Expected); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Fingerprint hashes cases the same way Parse does.
func Fingerprint(cases []Case) uint64 {
	var buf bytes.Buffer
	for _, c := range cases {
		fmt.Fprintf(&buf, "%s %d\n", c.Sequence, c.Expected)
	}
	return xxhash.Sum64(buf.Bytes())
}

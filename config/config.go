package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug         = "debug"
	ConfigDepth         = "depth"
	ConfigFixturePath   = "fixture-path"
	ConfigFixtureRows   = "fixture-rows"
	ConfigBenchThreads  = "bench-threads"
	ConfigResultsDB     = "results-db"
	ConfigNatsURL       = "nats-url"
	ConfigSolveSubject  = "solve-subject"
	ConfigCPUProfile    = "cpu-profile"
	ConfigConfigFile    = "config-file"
	ConfigHistoryFile   = "history-file"
	DefaultSolveSubject = "connectfour.solve"
	DefaultDepth        = 25
	DefaultFixtureRows  = 1000
)

// Config wraps a viper instance. Values come, in increasing priority, from
// defaults, a yaml config file, CONNECTFOUR_* environment variables and
// command-line flags.
type Config struct {
	sync.Mutex
	*viper.Viper

	args []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigDepth, DefaultDepth)
	v.SetDefault(ConfigFixturePath, "./data/fixtures")
	v.SetDefault(ConfigFixtureRows, DefaultFixtureRows)
	v.SetDefault(ConfigBenchThreads, runtime.NumCPU())
	v.SetDefault(ConfigResultsDB, "./data/results.db")
	v.SetDefault(ConfigNatsURL, "nats://127.0.0.1:4222")
	v.SetDefault(ConfigSolveSubject, DefaultSolveSubject)
	v.SetDefault(ConfigCPUProfile, "")
	v.SetDefault(ConfigHistoryFile, filepath.Join(os.TempDir(), "connectfour-readline.tmp"))
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("connectfour")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfig returns a config holding only defaults and environment
// overrides. Tests use it.
func DefaultConfig() *Config {
	return &Config{Viper: newViper()}
}

// Load builds the config from the given command-line arguments. Arguments
// that are not flags are left for the caller in Args().
func (c *Config) Load(args []string) error {
	c.Viper = newViper()

	fs := pflag.NewFlagSet("connectfour", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.Int(ConfigDepth, DefaultDepth, "search depth in plies")
	fs.String(ConfigFixturePath, "./data/fixtures", "directory holding fixture files")
	fs.Int(ConfigFixtureRows, DefaultFixtureRows, "maximum rows to read per fixture file")
	fs.Int(ConfigBenchThreads, runtime.NumCPU(), "number of solvers to run in parallel during benchmarks")
	fs.String(ConfigResultsDB, "./data/results.db", "sqlite database for benchmark results")
	fs.String(ConfigNatsURL, "nats://127.0.0.1:4222", "the NATS server URL")
	fs.String(ConfigSolveSubject, DefaultSolveSubject, "the NATS subject solve requests arrive on")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigConfigFile, "", "path to a yaml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.args = fs.Args()

	cfgFile := c.GetString(ConfigConfigFile)
	if cfgFile != "" {
		c.SetConfigFile(cfgFile)
	} else {
		c.SetConfigName("config")
		c.SetConfigType("yaml")
		c.AddConfigPath(".")
		c.AddConfigPath(filepath.Join(userConfigDir(), "connectfour"))
	}
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly named file must exist; the search path is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}

// Args returns the positional command-line arguments.
func (c *Config) Args() []string {
	return c.args
}

// Write saves the config to the file it was read from, or to config.yaml
// in the working directory.
func (c *Config) Write() error {
	c.Lock()
	defer c.Unlock()
	if c.ConfigFileUsed() != "" {
		return c.WriteConfig()
	}
	return c.WriteConfigAs("config.yaml")
}

// AdjustRelativePaths anchors relative file settings at basePath, which is
// usually the directory of the executable.
func (c *Config) AdjustRelativePaths(basePath string) {
	for _, key := range []string{ConfigFixturePath, ConfigResultsDB} {
		p := c.GetString(key)
		if p != "" && !filepath.IsAbs(p) {
			c.Set(key, filepath.Join(basePath, p))
		}
	}
}

// SanitizedSettings lists every setting for logging.
func (c *Config) SanitizedSettings() string {
	settings := c.AllSettings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%v ", k, settings[k])
	}
	return strings.TrimSpace(sb.String())
}

// Package config handles ember.toml node configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const FileName = "ember.toml"

const (
	DefaultNodeName     = "nonode@nohost"
	DefaultHeapWords    = 233
	DefaultTickInterval = Duration(time.Millisecond)
	DefaultLogLevel     = "info"
)

type Configuration struct {
	Node    Node    `toml:"node"`
	Heap    Heap    `toml:"heap"`
	Timer   Timer   `toml:"timer"`
	Journal Journal `toml:"journal"`
	Log     Log     `toml:"log"`

	// build info, set by the binary
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

type Node struct {
	Name string `toml:"name"`
}

type Heap struct {
	InitialWords int `toml:"initial-words"`
}

type Timer struct {
	TickInterval Duration `toml:"tick-interval"`
}

// Journal selects the event journal. An empty DSN disables it.
type Journal struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	Color bool   `toml:"color"`
}

// Duration is a time.Duration written as a string such as "5ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Default() *Configuration {
	return &Configuration{
		Node:    Node{Name: DefaultNodeName},
		Heap:    Heap{InitialWords: DefaultHeapWords},
		Timer:   Timer{TickInterval: DefaultTickInterval},
		Journal: Journal{Driver: "sqlite3"},
		Log:     Log{Level: DefaultLogLevel},
	}
}

// Load reads the configuration at path over the defaults, then applies
// EMBER_* environment overrides. An empty path skips the file.
func Load(path string) (*Configuration, error) {
	c := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
		c.Path = path
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FindAndLoad walks up from startDir looking for ember.toml and loads it.
// Without one, it returns the defaults with environment overrides.
func FindAndLoad(startDir string) (*Configuration, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Load("")
		}
		dir = parent
	}
}

func (c *Configuration) applyEnv(getenv func(string) string) error {
	if v := getenv("EMBER_NODE_NAME"); v != "" {
		c.Node.Name = v
	}
	if v := getenv("EMBER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("EMBER_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("EMBER_JOURNAL_DRIVER"); v != "" {
		c.Journal.Driver = v
	}
	if v := getenv("EMBER_JOURNAL_DSN"); v != "" {
		c.Journal.DSN = v
	}
	if v := getenv("EMBER_TICK_INTERVAL"); v != "" {
		if err := c.Timer.TickInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("EMBER_TICK_INTERVAL: %w", err)
		}
	}
	if v := getenv("EMBER_HEAP_WORDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EMBER_HEAP_WORDS: %w", err)
		}
		c.Heap.InitialWords = n
	}
	return nil
}

func (c *Configuration) fillDefaults() {
	if c.Node.Name == "" {
		c.Node.Name = DefaultNodeName
	}
	if c.Heap.InitialWords == 0 {
		c.Heap.InitialWords = DefaultHeapWords
	}
	if c.Timer.TickInterval == 0 {
		c.Timer.TickInterval = DefaultTickInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func (c *Configuration) Validate() error {
	var errs []error
	if !strings.Contains(c.Node.Name, "@") {
		errs = append(errs, fmt.Errorf("node name %q must have the form name@host", c.Node.Name))
	}
	if c.Heap.InitialWords < 0 {
		errs = append(errs, fmt.Errorf("heap initial-words must not be negative"))
	}
	if c.Timer.TickInterval < 0 {
		errs = append(errs, fmt.Errorf("timer tick-interval must not be negative"))
	}
	if c.Journal.DSN != "" && c.Journal.Driver != "sqlite3" && c.Journal.Driver != "mysql" {
		errs = append(errs, fmt.Errorf("journal driver %q is not sqlite3 or mysql", c.Journal.Driver))
	}
	return errors.Join(errs...)
}

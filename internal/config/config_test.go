package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Node.Name != DefaultNodeName || c.Heap.InitialWords != DefaultHeapWords || c.Timer.TickInterval != DefaultTickInterval {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Journal.DSN != "" {
		t.Errorf("expected the journal to be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[node]
name = "ember@localhost"

[heap]
initial-words = 1024

[timer]
tick-interval = "5ms"

[journal]
driver = "sqlite3"
dsn = ":memory:"

[log]
level = "debug"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Node.Name != "ember@localhost" {
		t.Errorf("unexpected node name %q", c.Node.Name)
	}
	if c.Heap.InitialWords != 1024 {
		t.Errorf("unexpected heap words %d", c.Heap.InitialWords)
	}
	if c.Timer.TickInterval.Std() != 5*time.Millisecond {
		t.Errorf("unexpected tick interval %s", c.Timer.TickInterval.Std())
	}
	if c.Journal.DSN != ":memory:" || c.Log.Level != "debug" || c.Path != path {
		t.Errorf("unexpected config %+v", c)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[node]
name = "file@host"
`)
	t.Setenv("EMBER_NODE_NAME", "env@host")
	t.Setenv("EMBER_TICK_INTERVAL", "20ms")
	t.Setenv("EMBER_LOG_LEVEL", "warn")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Node.Name != "env@host" {
		t.Errorf("expected environment to win, got %q", c.Node.Name)
	}
	if c.Timer.TickInterval.Std() != 20*time.Millisecond || c.Log.Level != "warn" {
		t.Errorf("unexpected overrides %+v", c)
	}

	t.Setenv("EMBER_HEAP_WORDS", "lots")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a malformed EMBER_HEAP_WORDS")
	}
}

func TestInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[node]\nnmae = \"x@y\"\n", "unknown keys"},
		{"bad node name", "[node]\nname = \"nohost\"\n", "name@host"},
		{"bad driver", "[journal]\ndriver = \"postgres\"\ndsn = \"x\"\n", "postgres"},
		{"bad duration", "[timer]\ntick-interval = \"soon\"\n", "parse error"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), c.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("expected error containing %q, got %v", c.want, err)
			}
		})
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[node]\nname = \"found@host\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if c.Node.Name != "found@host" {
		t.Errorf("expected the parent ember.toml to be found, got %q", c.Node.Name)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultWorld     = "world"
	DefaultLocale    = "en"
	DefaultQueueSize = 64
	DefaultPolicyDir = "policies"
)

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Store selects where policies live: driver "file" uses Dir, the SQL
// drivers (sqlite3, mysql, postgres) use DSN.
type Store struct {
	Driver string `toml:"driver"`
	Dir    string `toml:"dir"`
	DSN    string `toml:"dsn"`
}

type Configuration struct {
	Version   string `toml:"-"`
	BuildDate string `toml:"-"`
	Commit    string `toml:"-"`

	DefaultWorld string `toml:"default_world"`
	Locale       string `toml:"locale"`
	QueueSize    int    `toml:"queue_size"`
	Log          Log    `toml:"log"`
	Store        Store  `toml:"store"`
}

func Default() Configuration {
	return Configuration{
		DefaultWorld: DefaultWorld,
		Locale:       DefaultLocale,
		QueueSize:    DefaultQueueSize,
		Log:          Log{Level: "info", Format: "text"},
		Store:        Store{Driver: "file", Dir: DefaultPolicyDir},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (Configuration, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && optional {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

func (c Configuration) Validate() error {
	if c.DefaultWorld == "" {
		return errors.New("default_world must not be empty")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	switch c.Store.Driver {
	case "file":
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the file store")
		}
	case "sqlite3", "mysql", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

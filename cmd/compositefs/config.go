package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/absfs/compositefs"
	"github.com/absfs/memfs"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// configEnv names the environment variable consulted when no -config flag is given
const configEnv = "COMPOSITEFS_CONFIG"

// Config describes the mount table the CLI builds on startup
type Config struct {
	LogLevel string        `koanf:"logLevel"`
	Cache    CacheConfig   `koanf:"cache"`
	Mounts   []MountConfig `koanf:"mounts"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	TTL     time.Duration `koanf:"ttl"`
}

// MountConfig is one entry of the mount table. Root is only used by
// local mounts.
type MountConfig struct {
	Path string `koanf:"path"`
	Type string `koanf:"type"`
	Root string `koanf:"root"`
}

const (
	mountTypeLocal  = "local"
	mountTypeMemory = "memory"
	mountTypeMemfs  = "memfs"
)

type ConfigFormat string

type ParserFunc func() koanf.Parser

var parserMap = map[ConfigFormat]ParserFunc{
	".json": func() koanf.Parser { return json.Parser() },
	".yaml": func() koanf.Parser { return yaml.Parser() },
	".yml":  func() koanf.Parser { return yaml.Parser() },
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
		Cache:    CacheConfig{TTL: 5 * time.Second},
	}
}

// LoadConfig reads the config file at path. An empty path falls back to
// $COMPOSITEFS_CONFIG, and to the defaults if that is unset too.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return cfg, nil
	}

	parser, ok := parserMap[ConfigFormat(filepath.Ext(path))]
	if !ok {
		return cfg, fmt.Errorf("unsupported config format: %q", filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser()); err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the mount table for unknown types and duplicate paths
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, m := range c.Mounts {
		uri := compositefs.CleanURI(m.Path)
		if seen[uri] {
			return fmt.Errorf("mounts[%d]: duplicate mount path %q", i, m.Path)
		}
		seen[uri] = true

		switch m.Type {
		case mountTypeLocal:
			if m.Root == "" {
				return fmt.Errorf("mounts[%d]: local mount needs a root", i)
			}
		case mountTypeMemory, mountTypeMemfs:
		case "":
			return fmt.Errorf("mounts[%d]: missing type", i)
		default:
			return fmt.Errorf("mounts[%d]: unknown type %q", i, m.Type)
		}
	}
	return nil
}

// NewStorage creates the backend described by m
func (m MountConfig) NewStorage() (compositefs.Storage, error) {
	switch m.Type {
	case mountTypeLocal:
		return compositefs.NewLocalStorage(m.Root)
	case mountTypeMemory:
		return compositefs.NewAferoStorage(afero.NewMemMapFs()), nil
	case mountTypeMemfs:
		fs, err := memfs.NewFS()
		if err != nil {
			return nil, err
		}
		return compositefs.NewFilerStorage(fs), nil
	default:
		return nil, errors.New("unknown mount type: " + m.Type)
	}
}

// Build creates a CompositeStorage with every configured mount attached
func (c Config) Build(logger zerolog.Logger) (*compositefs.CompositeStorage, error) {
	cs := compositefs.New(
		compositefs.WithLogger(logger),
		compositefs.WithStatCache(c.Cache.Enabled, c.Cache.TTL),
	)

	for _, m := range c.Mounts {
		s, err := m.NewStorage()
		if err != nil {
			cs.Close()
			return nil, fmt.Errorf("mount %s: %w", m.Path, err)
		}
		cs.Mount(m.Path, s)
	}
	return cs, nil
}

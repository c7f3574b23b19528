package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/absfs/compositefs"
	"github.com/mitchellh/cli"
	"github.com/rs/zerolog"
)

// meta carries the flags and setup shared by all commands
type meta struct {
	Ui cli.Ui

	configPath string
	logLevel   string
	logOutput  io.Writer
}

func (m *meta) setLogOutput(w io.Writer) {
	m.logOutput = w
}

func (m *meta) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&m.configPath, "config", "", "path to the mount table (yaml or json)")
	fs.StringVar(&m.logLevel, "log-level", "", "log level, overrides the config file")
	return fs
}

func (m *meta) parse(name string, args []string, nargs int) ([]string, bool) {
	fs := m.flagSet(name)
	if err := fs.Parse(args); err != nil {
		m.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return nil, false
	}
	if fs.NArg() != nargs {
		m.Ui.Error(fmt.Sprintf("expected exactly %d argument(s) (%d given): %q", nargs, fs.NArg(), fs.Args()))
		return nil, false
	}
	return fs.Args(), true
}

// open loads the config and mounts everything in it
func (m *meta) open() (*compositefs.CompositeStorage, error) {
	cfg, err := LoadConfig(m.configPath)
	if err != nil {
		return nil, err
	}
	if m.logLevel != "" {
		cfg.LogLevel = m.logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	out := m.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()

	return cfg.Build(logger)
}

const flagsHelp = `
Options:

  -config=<path>      Mount table to load, defaults to $COMPOSITEFS_CONFIG.
  -log-level=<level>  Log level (trace, debug, info, warn, error).
`

func formatInfo(info compositefs.FileInfo) string {
	mtime := "-"
	if !info.MTime.IsZero() {
		mtime = info.MTime.UTC().Format("2006-01-02T15:04:05Z")
	}
	return fmt.Sprintf("%-9s %10d %s", info.Type, info.Size, mtime)
}

type MountsCommand struct {
	meta
}

func (c *MountsCommand) Run(args []string) int {
	if _, ok := c.parse("mounts", args, 0); !ok {
		return 1
	}

	cs, err := c.open()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer cs.Close()

	cs.VisitMounts(func(uri string, s compositefs.Storage) {
		line := fmt.Sprintf("/%s\t%T", uri, s)
		if native, ok := s.MapFS(""); ok {
			line += "\t" + native
		}
		c.Ui.Output(line)
	})
	return 0
}

func (c *MountsCommand) Help() string {
	return strings.TrimSpace(`
Usage: compositefs mounts [options]

  Lists the configured mounts, parents first.
` + flagsHelp)
}

func (c *MountsCommand) Synopsis() string {
	return "Lists mounted storages"
}

type LsCommand struct {
	meta
}

func (c *LsCommand) Run(args []string) int {
	rest, ok := c.parse("ls", args, 1)
	if !ok {
		return 1
	}

	cs, err := c.open()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer cs.Close()

	r, err := cs.OpenDirectory(rest[0])
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	entries, err := compositefs.ReadDirectory(r)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	for _, e := range entries {
		c.Ui.Output(fmt.Sprintf("%s %s", formatInfo(e.Info), e.Name))
	}
	return 0
}

func (c *LsCommand) Help() string {
	return strings.TrimSpace(`
Usage: compositefs ls [options] <uri>

  Lists a directory of the virtual tree, including mount points.
` + flagsHelp)
}

func (c *LsCommand) Synopsis() string {
	return "Lists a virtual directory"
}

type StatCommand struct {
	meta
}

func (c *StatCommand) Run(args []string) int {
	rest, ok := c.parse("stat", args, 1)
	if !ok {
		return 1
	}

	cs, err := c.open()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer cs.Close()

	info, err := cs.GetInfo(rest[0], true)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	c.Ui.Output(formatInfo(info))
	return 0
}

func (c *StatCommand) Help() string {
	return strings.TrimSpace(`
Usage: compositefs stat [options] <uri>

  Prints the metadata of a virtual path.
` + flagsHelp)
}

func (c *StatCommand) Synopsis() string {
	return "Shows metadata of a virtual path"
}

type MapCommand struct {
	meta
}

func (c *MapCommand) Run(args []string) int {
	rest, ok := c.parse("map", args, 1)
	if !ok {
		return 1
	}

	cs, err := c.open()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer cs.Close()

	native, ok := cs.MapFS(rest[0])
	if !ok {
		c.Ui.Error(fmt.Sprintf("%s has no native path", rest[0]))
		return 1
	}
	c.Ui.Output(native)
	return 0
}

func (c *MapCommand) Help() string {
	return strings.TrimSpace(`
Usage: compositefs map [options] <uri>

  Translates a virtual path to the native path of its storage.
` + flagsHelp)
}

func (c *MapCommand) Synopsis() string {
	return "Maps a virtual path to a native path"
}

type UnmapCommand struct {
	meta
}

func (c *UnmapCommand) Run(args []string) int {
	rest, ok := c.parse("unmap", args, 1)
	if !ok {
		return 1
	}

	cs, err := c.open()
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	defer cs.Close()

	uri, ok := cs.MapToRelativeUTF8(rest[0])
	if !ok {
		c.Ui.Error(fmt.Sprintf("%s is not inside any mount", rest[0]))
		return 1
	}
	c.Ui.Output("/" + uri)
	return 0
}

func (c *UnmapCommand) Help() string {
	return strings.TrimSpace(`
Usage: compositefs unmap [options] <native-path>

  Translates a native path back to its virtual path.
` + flagsHelp)
}

func (c *UnmapCommand) Synopsis() string {
	return "Maps a native path to a virtual path"
}

// Command compositefs builds a composite storage from a mount table and
// inspects it.
package main

import (
	"os"

	"github.com/mitchellh/cli"
)

func main() {
	ui := &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Writer:      os.Stdout,
			Reader:      os.Stdin,
			ErrorWriter: os.Stderr,
		},
	}

	c := &cli.CLI{
		Name:     "compositefs",
		Version:  "0.1.0",
		Args:     os.Args[1:],
		Commands: commands(ui),
	}

	exitStatus, err := c.Run()
	if err != nil {
		ui.Error("Error: " + err.Error())
	}

	os.Exit(exitStatus)
}

func commands(ui cli.Ui) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"mounts": func() (cli.Command, error) {
			return &MountsCommand{meta: meta{Ui: ui}}, nil
		},
		"ls": func() (cli.Command, error) {
			return &LsCommand{meta: meta{Ui: ui}}, nil
		},
		"stat": func() (cli.Command, error) {
			return &StatCommand{meta: meta{Ui: ui}}, nil
		},
		"map": func() (cli.Command, error) {
			return &MapCommand{meta: meta{Ui: ui}}, nil
		},
		"unmap": func() (cli.Command, error) {
			return &UnmapCommand{meta: meta{Ui: ui}}, nil
		},
	}
}

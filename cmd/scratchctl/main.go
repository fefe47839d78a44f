package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	version = "0.1.0"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "scratchctl",
		Usage:   "Read and moderate comments on Scratch projects, studios and profiles",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./scratchctl.toml, then ~/.scratchctl.toml)",
			},
		},
		Commands: []*cli.Command{
			CommentsCommand(),
			ParentCommand(),
			DeleteCommand(),
			ReportCommand(),
			WhoamiCommand(),
			ConfigCommand(),
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

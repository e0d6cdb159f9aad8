package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/packline/packline/cmd/packline/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag
		Build   commands.BuildCmd  `cmd:"" help:"Build the project once"`
		Serve   commands.ServeCmd  `cmd:"" help:"Build and serve with rebuild on change"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the generated bundler configuration"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}

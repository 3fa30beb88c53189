package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/appneta/tbonebuild/cmd/tbonebuild/commands"
	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("tbonebuild"),
		kong.Description("Assemble, optimize and package the TBone library."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Stdout: os.Stdout, Stderr: os.Stderr}
	if err := ctx.Run(global, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}

// Command txbridge bridges forge push webhooks to the tX conversion service.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/txbridge/cmd/txbridge/commands"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], commands.NewGlobal()))
}

// run executes the command line and returns the process exit code.
func run(args []string, g *commands.Global) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("txbridge"),
		kong.Description("Bridge forge push webhooks and conversion callbacks to the tX service."),
		kong.UsageOnError(),
		kong.Writers(g.Out, g.Err),
		kong.Vars{"version": version.Get().String()},
		kong.Bind(g),
	)
	if err != nil {
		_, _ = fmt.Fprintln(g.Err, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintln(g.Err, err)
		return 2
	}

	if err := kctx.Run(g, cli); err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, g.Logger)
		adapter.Log(err)
		_, _ = fmt.Fprintln(g.Err, adapter.FormatError(err))
		return adapter.ExitCodeFor(err)
	}
	return 0
}

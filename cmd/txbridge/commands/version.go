package commands

import (
	"fmt"

	"git.home.luguber.info/inful/txbridge/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct {
	JSON bool `help:"Print build information as JSON"`
}

func (v *VersionCmd) Run(g *Global) error {
	info := version.Get()
	if v.JSON {
		return writeJSON(g.Out, info)
	}
	_, err := fmt.Fprintln(g.Out, info.String())
	return err
}

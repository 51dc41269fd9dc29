package commands

import (
	"fmt"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

// DefaultConfigFile is written by 'init' when no --config is given.
const DefaultConfigFile = "txbridge.yaml"

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = DefaultConfigFile
	}
	if err := config.Init(path, i.Force); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "initialization failed").
			WithContext("path", path).
			Build()
	}
	_, err := fmt.Fprintf(g.Out, "Configuration written to %s\n", path)
	return err
}

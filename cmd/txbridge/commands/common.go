// Package commands implements the txbridge command line.
package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/daemon"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/observability"
)

// Global is the state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
	Out    io.Writer
	Err    io.Writer
}

// NewGlobal returns a Global writing to the process streams.
func NewGlobal() *Global {
	return &Global{Level: new(slog.LevelVar), Out: os.Stdout, Err: os.Stderr}
}

// SetupLogging installs the default slog logger with the given handler format.
func (g *Global) SetupLogging(format string) {
	opts := &slog.HandlerOptions{Level: g.Level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(g.Err, opts)
	} else {
		handler = slog.NewTextHandler(g.Err, opts)
	}
	g.Logger = slog.New(observability.NewContextHandler(handler))
	slog.SetDefault(g.Logger)
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" env:"TXBRIDGE_CONFIG" help:"Configuration file path (optional; environment variables are always read)"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); defaults to logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Run the webhook and callback listeners"`
	Submit   SubmitCmd   `cmd:"" help:"Run the webhook flow once for a push payload file"`
	Complete CompleteCmd `cmd:"" help:"Run the callback flow once for a completion payload file"`
	Resolve  ResolveCmd  `cmd:"" help:"Resolve the manifest of a local repository and show the selected strategy"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Info     VersionCmd  `cmd:"" name:"version" help:"Print build information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	if c.Verbose {
		g.Level.Set(slog.LevelDebug)
	}
	g.SetupLogging(c.LogFormat)
	return nil
}

// loadConfig loads the configuration and applies its logging section unless
// flags already decided.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load configuration").
			WithContext("path", c.Config).
			Build()
	}
	if !c.Verbose {
		g.Level.Set(cfg.Logging.SlogLevel())
	}
	if c.LogFormat == "" && cfg.Logging.Format != "" {
		g.SetupLogging(cfg.Logging.Format)
	}
	return cfg, nil
}

// assemble loads the configuration and builds the runtime components.
func (c *CLI) assemble(ctx context.Context, g *Global) (*config.Config, *daemon.Components, error) {
	cfg, err := c.loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	components, err := daemon.Assemble(ctx, cfg)
	if err != nil {
		return nil, nil, errors.WrapError(err, errors.CategoryConfig, "failed to initialize").Build()
	}
	return cfg, components, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/txbridge/internal/daemon"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	NoWatch bool `name:"no-watch" help:"Do not reload the configuration file when it changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, components, err := root.assemble(ctx, g)
	if err != nil {
		return err
	}

	opts := []daemon.Option{daemon.WithLogLevel(g.Level)}
	if root.Config != "" && !s.NoWatch {
		opts = append(opts, daemon.WithConfigFile(root.Config))
	}
	d, err := daemon.New(cfg, components, opts...)
	if err != nil {
		_ = components.Close()
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	slog.Info("Daemon stopped successfully")
	return nil
}

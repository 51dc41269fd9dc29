package commands

import (
	"context"
	"io"
	"os"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/state"
)

// SubmitCmd implements the 'submit' command.
type SubmitCmd struct {
	Payload string `arg:"" help:"Push payload file, or - for stdin"`
}

func (s *SubmitCmd) Run(g *Global, root *CLI) error {
	return invoke(g, root, s.Payload, func(ctx context.Context, r bridge, body []byte) (*state.BuildLog, error) {
		return r.Submit(ctx, body)
	})
}

// CompleteCmd implements the 'complete' command.
type CompleteCmd struct {
	Payload string `arg:"" help:"Completion payload file, or - for stdin"`
}

func (c *CompleteCmd) Run(g *Global, root *CLI) error {
	return invoke(g, root, c.Payload, func(ctx context.Context, r bridge, body []byte) (*state.BuildLog, error) {
		return r.Complete(ctx, body)
	})
}

type bridge interface {
	Submit(ctx context.Context, body []byte) (*state.BuildLog, error)
	Complete(ctx context.Context, body []byte) (*state.BuildLog, error)
}

// invoke runs one flow against the configured backends and prints the
// resulting build log.
func invoke(g *Global, root *CLI, payload string, flow func(context.Context, bridge, []byte) (*state.BuildLog, error)) error {
	ctx := context.Background()
	_, components, err := root.assemble(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	body, err := readPayload(payload)
	if err != nil {
		return err
	}

	log, err := flow(ctx, components.Runner, body)
	if err != nil {
		return err
	}
	return writeJSON(g.Out, log)
}

func readPayload(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- operator supplied path
	}
	if err != nil {
		return nil, errors.ValidationError("failed to read payload").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return data, nil
}

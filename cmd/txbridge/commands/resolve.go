package commands

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/manifest"
	"git.home.luguber.info/inful/txbridge/internal/preprocess"
)

// ResolveCmd implements the 'resolve' command. Resolution rewrites
// manifest.json inside the directory.
type ResolveCmd struct {
	Dir  string `arg:"" type:"existingdir" help:"Repository checkout"`
	Name string `help:"Repository name used for naming conventions (defaults to the directory name)"`
	Out  string `short:"o" help:"Run the selected strategy and write its output here"`
}

// Resolution is the report printed by 'resolve'.
type Resolution struct {
	Repository   string            `json:"repository"`
	Source       string            `json:"manifest_source,omitempty"`
	Generator    string            `json:"generator,omitempty"`
	ResourceID   string            `json:"resource_id"`
	Format       string            `json:"format"`
	DispatchKey  string            `json:"dispatch_key"`
	Strategy     string            `json:"strategy"`
	ContentDir   string            `json:"content_dir"`
	Files        []string          `json:"files,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	name := r.Name
	if name == "" {
		abs, err := filepath.Abs(r.Dir)
		if err != nil {
			return errors.ValidationError("invalid directory").WithCause(err).Build()
		}
		name = filepath.Base(abs)
	}

	res, err := manifest.NewResolver().Resolve(r.Dir, name)
	if err != nil {
		return err
	}
	dispatcher := preprocess.NewDispatcher(cfg.Dispatch.ResourceAliases)
	key := dispatcher.KeyFor(res)

	outDir := r.Out
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "txbridge-resolve-")
		if err != nil {
			return errors.FileSystemError("failed to create scratch directory").WithCause(err).Build()
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		outDir = tmp
	}
	strategy := dispatcher.Dispatch(key, res.Manifest, res.ContentDir, outDir)

	report := Resolution{
		Repository:  name,
		Source:      res.Source,
		Generator:   res.Generator,
		ResourceID:  res.Manifest.ResourceID(),
		Format:      key.Format,
		DispatchKey: key.String(),
		Strategy:    strategy.Name(),
		ContentDir:  res.ContentDir,
	}
	if r.Out != "" {
		result, err := strategy.Run(context.Background())
		if err != nil {
			return err
		}
		report.Files = result.Files
		report.Warnings = result.Warnings
		report.Fingerprints = result.Fingerprints
	}
	return writeJSON(g.Out, report)
}

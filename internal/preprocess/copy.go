package preprocess

import (
	"context"
	"path/filepath"
)

// copyStrategy copies the tree unchanged.
type copyStrategy struct {
	Binding
}

func newCopyStrategy(b Binding) Strategy { return &copyStrategy{Binding: b} }

func (s *copyStrategy) Name() string { return DefaultStrategy }

func (s *copyStrategy) Run(ctx context.Context) (Result, error) {
	out, err := newOutput(s.OutDir)
	if err != nil {
		return Result{}, err
	}
	for _, rel := range walkFiles(s.InDir) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := out.copyFile(filepath.Join(s.InDir, filepath.FromSlash(rel)), rel); err != nil {
			return Result{}, err
		}
	}
	return out.result(), nil
}

package providers

import (
	"context"

	"github.com/TommyLike/copr/internal/models"
)

// GitAndTitoProvider builds the SRPM from a git checkout with tito in
// SRPM-only mode.
type GitAndTitoProvider struct {
	pipeline *gitPipeline
}

// NewGitAndTitoProvider creates a tito-backed git provider for the task.
func NewGitAndTitoProvider(task *models.ImportTask, targetPath string, opts Options) *GitAndTitoProvider {
	p := &GitAndTitoProvider{}
	p.pipeline = &gitPipeline{
		task:       task,
		targetPath: targetPath,
		buildTool:  "tito",
		build:      p.buildTito,
		logger:     opts.logger(),
	}
	return p
}

// Produce runs the shared git pipeline with the tito build stage.
func (p *GitAndTitoProvider) Produce(ctx context.Context) error {
	return p.pipeline.run(ctx)
}

// buildTito invokes tito against the effective source subdirectory, writing
// the SRPM into outDir. The task's test flag is passed through.
func (p *GitAndTitoProvider) buildTito(ctx context.Context, srcDir, outDir string) error {
	args := []string{"build", "--srpm", "-o", outDir}
	if p.pipeline.task.TitoTest {
		args = append(args, "--test")
	}

	res, err := runStrict(ctx, srcDir, "tito", args...)
	if err != nil {
		return &BuildError{Tool: "tito", Stderr: res.stderr, Err: err}
	}
	return nil
}

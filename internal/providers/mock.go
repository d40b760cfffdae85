package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/TommyLike/copr/internal/models"
)

// GitAndMockProvider builds the SRPM with mock, letting the sandbox manager
// fetch the sources itself through its SCM mechanism.
type GitAndMockProvider struct {
	pipeline *gitPipeline
	chroot   string
}

// NewGitAndMockProvider creates a mock-backed git provider for the task.
func NewGitAndMockProvider(task *models.ImportTask, targetPath string, opts Options) *GitAndMockProvider {
	p := &GitAndMockProvider{chroot: opts.MockChroot}
	p.pipeline = &gitPipeline{
		task:       task,
		targetPath: targetPath,
		buildTool:  "mock",
		build:      p.buildMock,
		logger:     opts.logger(),
	}
	return p
}

// Produce runs the shared git pipeline with the mock build stage.
func (p *GitAndMockProvider) Produce(ctx context.Context) error {
	return p.pipeline.run(ctx)
}

// buildMock derives the package name from the single spec file in the source
// subdirectory and runs an SRPM-only mock build against the task's git URL
// and branch. Mock's own exit status is the failure signal here; stderr is
// captured for operator logs only.
func (p *GitAndMockProvider) buildMock(ctx context.Context, srcDir, outDir string) error {
	spec, err := findSpec(srcDir)
	if err != nil {
		return err
	}
	pkg := strings.TrimSuffix(spec, ".spec")

	task := p.pipeline.task
	args := []string{
		"-r", p.chroot,
		"--scm-enable",
		"--scm-option", "method=git",
		"--scm-option", "package=" + pkg,
		"--scm-option", "branch=" + task.GitBranch,
		"--scm-option", "write_tar=True",
		"--scm-option", fmt.Sprintf("git_get=git clone %s", task.GitURL),
		"--buildsrpm",
		"--resultdir=" + outDir,
	}

	res, err := runCmd(ctx, srcDir, "mock", args...)
	if err != nil {
		return &BuildError{Tool: "mock", Stderr: res.stderr, Err: err}
	}
	return nil
}

// findSpec returns the name of the single *.spec file in dir. Zero or
// multiple spec files means the checkout cannot drive a mock SRPM build.
func findSpec(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &BuildError{Tool: "mock", Err: err}
	}

	var specs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".spec") {
			specs = append(specs, e.Name())
		}
	}

	if len(specs) != 1 {
		return "", &BuildError{
			Tool: "mock",
			Err:  fmt.Errorf("expected exactly one spec file in %s, found %d", dir, len(specs)),
		}
	}
	return specs[0], nil
}

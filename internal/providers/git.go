package providers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TommyLike/copr/internal/models"
)

// buildFunc is the injected build stage of the git pipeline. It must
// populate outDir with the build artifacts.
type buildFunc func(ctx context.Context, srcDir, outDir string) error

// gitPipeline is the fixed clone → checkout → build → extract → cleanup
// sequence shared by the git-based providers. Only the build stage varies.
type gitPipeline struct {
	task       *models.ImportTask
	targetPath string
	buildTool  string
	build      buildFunc
	logger     *slog.Logger
}

// run drives the pipeline. Both temp directories are removed on every exit
// path, success or error.
func (p *gitPipeline) run(ctx context.Context) error {
	scratch, err := os.MkdirTemp("", "copr-git-")
	if err != nil {
		return &CloneError{GitURL: p.task.GitURL, Err: err}
	}
	defer os.RemoveAll(scratch)

	outDir, err := os.MkdirTemp("", "copr-out-")
	if err != nil {
		return &BuildError{Tool: p.buildTool, Err: err}
	}
	defer os.RemoveAll(outDir)

	srcDir, err := p.clone(ctx, scratch)
	if err != nil {
		return err
	}

	if err := p.checkoutBranch(ctx, srcDir); err != nil {
		return err
	}

	p.logger.Debug("building srpm", "tool", p.buildTool, "src_dir", srcDir)
	if err := p.build(ctx, srcDir, outDir); err != nil {
		return err
	}

	return extractSRPM(outDir, p.targetPath)
}

// clone clones the task's repository into scratch and returns the effective
// source subdirectory. The cloned directory name is discovered by listing
// scratch, never assumed; anything but exactly one entry is a layout error.
func (p *gitPipeline) clone(ctx context.Context, scratch string) (string, error) {
	p.logger.Debug("cloning repository", "git_url", p.task.GitURL)

	// Quiet mode keeps the progress banner off stderr so the zero-tolerance
	// stderr contract only trips on real errors.
	res, err := runStrict(ctx, scratch, "git", "clone", "--quiet", p.task.GitURL)
	if err != nil {
		return "", &CloneError{GitURL: p.task.GitURL, Stderr: res.stderr, Err: err}
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return "", &LayoutError{Dir: scratch, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 1 {
		return "", &LayoutError{Dir: scratch, Entries: names}
	}

	return filepath.Join(scratch, names[0], p.task.GitDir), nil
}

// checkoutBranch checks out the requested branch inside the source
// subdirectory. The repository default needs no checkout call.
func (p *gitPipeline) checkoutBranch(ctx context.Context, srcDir string) error {
	if p.task.GitBranch == "" || p.task.GitBranch == "master" {
		return nil
	}

	p.logger.Debug("checking out branch", "git_branch", p.task.GitBranch)
	res, err := runStrict(ctx, srcDir, "git", "checkout", "--quiet", p.task.GitBranch)
	if err != nil {
		return &CheckoutError{Branch: p.task.GitBranch, Stderr: res.stderr, Err: err}
	}
	return nil
}

// extractSRPM scans dir for *.src.rpm files and copies the single match to
// targetPath byte for byte. Zero or multiple matches is an extraction error;
// guessing which candidate is "the" result would mask build misconfiguration.
func extractSRPM(dir, targetPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &ExtractionError{Dir: dir, Err: err}
	}

	var matches []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".src.rpm") {
			matches = append(matches, e.Name())
		}
	}

	if len(matches) != 1 {
		return &ExtractionError{Dir: dir, Matches: matches}
	}

	if err := copyFile(filepath.Join(dir, matches[0]), targetPath); err != nil {
		return &ExtractionError{Dir: dir, Matches: matches, Err: err}
	}
	return nil
}

// copyFile copies src to dst, removing dst on a failed write or close so no
// partial artifact survives.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

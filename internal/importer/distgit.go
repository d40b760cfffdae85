package importer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/TommyLike/copr/internal/models"
	"github.com/TommyLike/copr/internal/providers"
	"github.com/TommyLike/copr/pkg/config"
)

// ImportError represents a failed dist-git import.
type ImportError struct {
	// Repo is the dist-git repository the import targeted.
	Repo string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return fmt.Sprintf("importing srpm into %s: %v", e.Repo, e.Err)
}

// Unwrap returns the underlying error.
func (e *ImportError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *ImportError) Kind() providers.FailureKind { return providers.KindImportFailed }

// SrpmImporter commits an SRPM's sources into the dist-git repository and
// returns the resulting commit identifier. The orchestrator owns the scratch
// directory and removes it regardless of outcome.
type SrpmImporter interface {
	ImportSrpm(ctx context.Context, task *models.ImportTask, srpmPath, scratchDir string) (string, error)
}

// ScriptImporter delegates the import to an external helper script invoked
// as: import_script <reponame> <branch> <srpm path>, run inside the scratch
// directory. The script prints the commit hash on its last stdout line.
type ScriptImporter struct {
	script string
	logger *slog.Logger
}

// NewScriptImporter creates a script-backed SrpmImporter.
func NewScriptImporter(script string, logger *slog.Logger) *ScriptImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptImporter{script: script, logger: logger}
}

// ImportSrpm runs the import helper and parses the commit hash.
func (s *ScriptImporter) ImportSrpm(ctx context.Context, task *models.ImportTask, srpmPath, scratchDir string) (string, error) {
	repo, ok := task.Reponame()
	if !ok {
		return "", fmt.Errorf("task %s has no identified package", task.TaskID)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.script, repo, task.Branch, srpmPath)
	cmd.Dir = scratchDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}

	lines := strings.Fields(stdout.String())
	if len(lines) == 0 {
		return "", fmt.Errorf("import script produced no commit hash")
	}
	return lines[len(lines)-1], nil
}

// Provisioner runs the dist-git side-effect scripts around the import. The
// scripts are idempotent and their exit status is deliberately not
// inspected, but they run synchronously so the repository exists before the
// import starts.
type Provisioner struct {
	cfg    config.DistGitConfig
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner from the dist-git script config.
func NewProvisioner(cfg config.DistGitConfig, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{cfg: cfg, logger: logger}
}

// EnsureRepo makes sure the package repository and its branch exist.
func (p *Provisioner) EnsureRepo(ctx context.Context, repo, branch string) {
	p.logger.Debug("ensuring dist-git repo exists", "repo", repo, "branch", branch)
	p.fireAndForget(ctx, p.cfg.PackageScript, repo)
	p.fireAndForget(ctx, p.cfg.BranchScript, branch, repo)
}

// RefreshListing refreshes the cgit package listing cache. Best effort; its
// failure is never fatal to a task.
func (p *Provisioner) RefreshListing(ctx context.Context) {
	p.logger.Debug("refreshing cgit listing")
	p.fireAndForget(ctx, p.cfg.ListingScript, p.cfg.ListingCache)
}

func (p *Provisioner) fireAndForget(ctx context.Context, script string, args ...string) {
	cmd := exec.CommandContext(ctx, script, args...)
	if err := cmd.Run(); err != nil {
		p.logger.Debug("dist-git helper script failed", "script", script, "error", err)
	}
}

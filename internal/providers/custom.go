package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/TommyLike/copr/internal/models"
)

// innerWorkdir is the working directory used inside the sandbox.
const innerWorkdir = "/workdir"

// CustomScriptProvider builds an SRPM from an arbitrary user script inside
// an isolated mock build root. Unlike the other providers the sandbox runs
// with networking enabled: the whole point of the custom path is letting the
// script fetch its own dependencies at build time.
type CustomScriptProvider struct {
	task       *models.ImportTask
	targetPath string

	chroot         string
	configDir      string
	sourcesCommand string

	client *http.Client
	logger *slog.Logger
}

// NewCustomScriptProvider creates a sandboxed-script provider for the task.
func NewCustomScriptProvider(task *models.ImportTask, targetPath string, opts Options) *CustomScriptProvider {
	chroot := task.Chroot
	if chroot == "" {
		chroot = opts.CustomChroot
	}
	return &CustomScriptProvider{
		task:           task,
		targetPath:     targetPath,
		chroot:         chroot,
		configDir:      opts.MockConfigDir,
		sourcesCommand: opts.SourcesCommand,
		// Hook payloads come from arbitrary webhook forwarders, so unlike
		// SRPM downloads the certificate check stays on.
		client: &http.Client{},
		logger: opts.logger(),
	}
}

// Produce writes the script and sandbox configuration into a fresh working
// area, optionally fetches the webhook payload, runs the source-preparation
// helper inside the sandbox, copies the result out, scrubs the sandbox, and
// extracts the single produced SRPM. The working area is removed on every
// exit path.
func (p *CustomScriptProvider) Produce(ctx context.Context) error {
	workdir, err := os.MkdirTemp("", "copr-custom-")
	if err != nil {
		return &BuildError{Tool: p.sourcesCommand, Err: err}
	}
	defer os.RemoveAll(workdir)

	scriptPath := filepath.Join(workdir, "script")
	if err := os.WriteFile(scriptPath, []byte(p.task.Script), 0o755); err != nil {
		return &BuildError{Tool: p.sourcesCommand, Err: fmt.Errorf("writing script: %w", err)}
	}

	mockCfg := filepath.Join(workdir, "mock-config.cfg")
	if err := os.WriteFile(mockCfg, []byte(p.mockConfig()), 0o644); err != nil {
		return &BuildError{Tool: "mock", Err: fmt.Errorf("writing sandbox config: %w", err)}
	}

	// The payload download happens before the first sandbox invocation so a
	// dead webhook URL never leaves a half-built sandbox behind.
	var payloadPath string
	if p.task.HookPayloadURL != "" {
		payloadPath = filepath.Join(workdir, "hook_payload")
		p.logger.Debug("fetching hook payload", "url", p.task.HookPayloadURL)
		if err := fetchToFile(ctx, p.client, p.task.HookPayloadURL, payloadPath, successOnly); err != nil {
			return err
		}
	}

	if err := p.prepareSources(ctx, workdir, mockCfg, scriptPath, payloadPath); err != nil {
		return err
	}

	staging := filepath.Join(workdir, "srcdir")
	if err := p.copyOut(ctx, mockCfg, staging); err != nil {
		return err
	}

	if err := p.scrub(ctx, mockCfg); err != nil {
		return err
	}

	return extractSRPM(staging, p.targetPath)
}

// mockConfig renders the sandbox configuration layered onto the chroot
// profile. Networking is enabled on purpose, and the tmpfs plugin keeps the
// root mounted so the script file survives across mock invocations within
// one build root.
func (p *CustomScriptProvider) mockConfig() string {
	return fmt.Sprintf(
		"include('%s/%s.cfg')\n"+
			"config_opts['rpmbuild_networking'] = True\n"+
			"config_opts['use_host_resolv'] = True\n"+
			"config_opts['plugin_conf']['tmpfs_opts']['keep_mounted'] = True\n",
		p.configDir, p.chroot)
}

// prepareSources runs the source-preparation helper inside the sandbox.
func (p *CustomScriptProvider) prepareSources(ctx context.Context, workdir, mockCfg, scriptPath, payloadPath string) error {
	args := []string{
		"--workdir", innerWorkdir,
		"--mock-config", mockCfg,
		"--script", scriptPath,
	}
	if p.task.BuildDeps != "" {
		args = append(args, "--builddeps", p.task.BuildDeps)
	}
	if payloadPath != "" {
		args = append(args, "--hook-payload-file", payloadPath)
	}
	if p.task.ResultDir != "" {
		args = append(args, "--resultdir", p.task.ResultDir)
	}

	p.logger.Debug("preparing sources in sandbox", "chroot", p.chroot)
	res, err := runCmd(ctx, workdir, p.sourcesCommand, args...)
	if err != nil {
		return &BuildError{Tool: p.sourcesCommand, Stderr: res.stderr, Err: err}
	}
	return nil
}

// innerResultdir resolves the in-sandbox result location, honoring the
// task's result-directory override.
func (p *CustomScriptProvider) innerResultdir() string {
	if p.task.ResultDir == "" {
		return innerWorkdir
	}
	return path.Join(innerWorkdir, p.task.ResultDir)
}

// copyOut copies the in-sandbox result location into the local staging dir.
func (p *CustomScriptProvider) copyOut(ctx context.Context, mockCfg, staging string) error {
	res, err := runCmd(ctx, "", "mock", "-r", mockCfg, "--copyout", p.innerResultdir(), staging)
	if err != nil {
		return &BuildError{Tool: "mock", Stderr: res.stderr, Err: err}
	}
	return nil
}

// scrub destroys the sandbox instance.
func (p *CustomScriptProvider) scrub(ctx context.Context, mockCfg string) error {
	res, err := runCmd(ctx, "", "mock", "-r", mockCfg, "--scrub", "all")
	if err != nil {
		return &BuildError{Tool: "mock", Stderr: res.stderr, Err: err}
	}
	return nil
}

// Package importer drives dequeued build requests through source
// resolution, package identification, dist-git import and result
// notification.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TommyLike/copr/internal/frontend"
	"github.com/TommyLike/copr/internal/models"
	"github.com/TommyLike/copr/internal/providers"
	"github.com/TommyLike/copr/pkg/logger"
)

// srpmInspector reads the package name and EVR out of a produced SRPM.
type srpmInspector interface {
	Inspect(ctx context.Context, srpmPath string) (name, evr string, err error)
}

// Worker is the single-threaded polling loop. One task is processed fully,
// including all failure handling, before the next poll; the loop itself only
// ends on Stop or context cancellation, never on a task failure.
type Worker struct {
	frontend     *frontend.Client
	provisioner  *Provisioner
	srpmImporter SrpmImporter
	inspector    srpmInspector
	logger       *logger.Logger

	workDir       string
	sleepInterval time.Duration
	providerOpts  providers.Options

	stopCh   chan struct{}
	stopOnce sync.Once

	lastPoll atomic.Int64
}

// WorkerConfig holds configuration for the import worker.
type WorkerConfig struct {
	WorkDir       string
	SleepInterval time.Duration
	Providers     providers.Options
}

// NewWorker creates an import worker.
func NewWorker(cfg *WorkerConfig, fe *frontend.Client, prov *Provisioner, imp SrpmImporter, log *logger.Logger) (*Worker, error) {
	if log == nil {
		log = logger.Default()
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	return &Worker{
		frontend:      fe,
		provisioner:   prov,
		srpmImporter:  imp,
		inspector:     NewInspector(log.Logger),
		logger:        log,
		workDir:       cfg.WorkDir,
		sleepInterval: cfg.SleepInterval,
		providerOpts:  cfg.Providers,
		stopCh:        make(chan struct{}),
	}, nil
}

// Run polls the frontend queue until Stop is called or the context ends.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("dist-git importer started", "work_dir", w.workDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			w.logger.Info("dist-git importer stopped")
			return nil
		default:
		}

		w.lastPoll.Store(time.Now().UnixNano())

		task, err := w.frontend.NextTask(ctx)
		if err != nil {
			// Covers unreachable frontends and malformed jobs alike: log,
			// sleep, poll again.
			w.logger.Error("failed to acquire new task", "error", err)
			w.sleep(ctx)
			continue
		}
		if task == nil {
			w.logger.Debug("no new tasks to process")
			w.sleep(ctx)
			continue
		}

		w.processTask(ctx, task)
	}
}

// Stop requests the polling loop to end after the current task.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// LastPoll reports when the loop last asked the queue for work.
func (w *Worker) LastPoll() time.Time {
	n := w.lastPoll.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-time.After(w.sleepInterval):
	case <-ctx.Done():
	case <-w.stopCh:
	}
}

// processTask runs one task to a terminal outcome. Exactly one notification
// payload is produced: success, or a failure classified by kind. A panic in
// any stage is caught here so a single malformed task cannot take the
// polling loop down.
func (w *Worker) processTask(ctx context.Context, task *models.ImportTask) {
	log := w.logger.WithTaskID(task.TaskID).With("source_type", task.SourceType.String())
	log.Info("processing import task", "user", task.User, "project", task.Project, "branch", task.Branch)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during task processing", "panic", r)
			w.frontend.PostResultSafe(ctx, &models.FailurePayload{
				TaskID: task.TaskID,
				Error:  string(providers.KindUnknown),
			})
		}
	}()

	workRoot := filepath.Join(w.workDir, "import-"+uuid.NewString())
	if err := os.MkdirAll(workRoot, 0o755); err != nil {
		log.Error("failed to allocate task work root", "error", err)
		w.frontend.PostResultSafe(ctx, &models.FailurePayload{
			TaskID: task.TaskID,
			Error:  string(providers.KindUnknown),
		})
		return
	}
	defer os.RemoveAll(workRoot)

	srpmPath := filepath.Join(workRoot, "package.src.rpm")

	if err := w.runPipeline(ctx, task, workRoot, srpmPath, log); err != nil {
		kind := providers.KindOf(err)
		log.Error("import failed", "error", err, "kind", kind)
		w.frontend.PostResultSafe(ctx, &models.FailurePayload{
			TaskID: task.TaskID,
			Error:  string(kind),
		})
		return
	}

	// A failed success post does not demote the task: the import is done and
	// only the notification was lost.
	if err := w.frontend.PostResult(ctx, task.FrontendSuccess()); err != nil {
		log.Error("failed to post success result", "error", err)
		return
	}
	log.Info("import finished", "package", task.PackageName, "evr", task.PackageEVR, "git_hash", task.GitHash)
}

// runPipeline is the per-task state machine: source resolution → package
// identification → repository provisioning → dist-git import → listing
// refresh. Each stage returns a typed error carrying its failure kind.
func (w *Worker) runPipeline(ctx context.Context, task *models.ImportTask, workRoot, srpmPath string, log *slog.Logger) error {
	provider, err := providers.ForTask(task, srpmPath, w.providerOpts)
	if err != nil {
		return err
	}

	if err := provider.Produce(ctx); err != nil {
		return err
	}
	log.Debug("source resolved", "srpm", srpmPath)

	name, evr, err := w.inspector.Inspect(ctx, srpmPath)
	if err != nil {
		return err
	}
	task.PackageName = name
	task.PackageEVR = evr

	repo, ok := task.Reponame()
	if !ok {
		return &models.MalformedTaskError{
			TaskID: task.TaskID,
			Reason: "user or project missing, cannot derive repository name",
		}
	}
	log.Info("package identified", "package", name, "evr", evr, "repo", repo)

	w.provisioner.EnsureRepo(ctx, repo, task.Branch)

	scratch := filepath.Join(workRoot, "import-scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return &ImportError{Repo: repo, Err: err}
	}
	defer os.RemoveAll(scratch)

	hash, err := w.srpmImporter.ImportSrpm(ctx, task, srpmPath, scratch)
	if err != nil {
		return &ImportError{Repo: repo, Err: err}
	}
	task.GitHash = hash
	log.Debug("srpm imported", "git_hash", hash)

	w.provisioner.RefreshListing(ctx)

	return nil
}

// Package providers turns an import task into exactly one SRPM file.
//
// Each source type maps to one Provider strategy. A provider is stateless,
// instantiated per task with the task and a target path, and guarantees that
// on success exactly one valid SRPM exists at that path, while every scratch
// area it allocated is gone by the time Produce returns.
package providers

import (
	"context"
	"log/slog"

	"github.com/TommyLike/copr/internal/models"
)

// Provider produces an SRPM at the target path it was constructed with.
type Provider interface {
	// Produce fetches or builds the SRPM. On failure the target path must
	// not be treated as valid by any caller.
	Produce(ctx context.Context) error
}

// Options carries the provider-family settings taken from worker config.
type Options struct {
	// MockChroot is the build root for SCM-driven mock builds.
	MockChroot string

	// MockConfigDir is where the base chroot configs live.
	MockConfigDir string

	// CustomChroot is the default build root for custom-script builds.
	CustomChroot string

	// SourcesCommand is the in-sandbox source-preparation helper invoked by
	// the custom-script provider.
	SourcesCommand string

	// Logger receives per-stage diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ForTask maps a task's source type to its provider. The mapping is closed:
// an unrecognized source type is rejected with *models.MalformedTaskError,
// never silently routed to a default provider.
func ForTask(task *models.ImportTask, targetPath string, opts Options) (Provider, error) {
	switch task.SourceType {
	case models.SourceSrpmLink, models.SourceSrpmUpload:
		return NewSrpmURLProvider(task, targetPath, opts), nil
	case models.SourceGitAndTito:
		return NewGitAndTitoProvider(task, targetPath, opts), nil
	case models.SourceGitAndMock:
		return NewGitAndMockProvider(task, targetPath, opts), nil
	case models.SourceCustom:
		return NewCustomScriptProvider(task, targetPath, opts), nil
	default:
		return nil, &models.MalformedTaskError{
			TaskID: task.TaskID,
			Reason: "unknown source type " + task.SourceType.String(),
		}
	}
}

package importer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/TommyLike/copr/internal/providers"
)

// QueryError represents a failed SRPM metadata query.
type QueryError struct {
	// Path is the SRPM file that was being queried.
	Path string

	// Output is the raw query output, when its shape was the problem.
	Output string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("querying srpm %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("querying srpm %s: unexpected output %q", e.Path, e.Output)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *QueryError) Kind() providers.FailureKind { return providers.KindQueryFailed }

// Inspector reads the canonical name and EVR out of a produced SRPM.
type Inspector struct {
	logger *slog.Logger
}

// NewInspector creates an Inspector.
func NewInspector(logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inspector{logger: logger}
}

// Inspect queries the SRPM header for name, epoch, version and release.
// The query must yield exactly four whitespace-delimited tokens; anything
// else is a *QueryError. The file itself is never modified.
func (i *Inspector) Inspect(ctx context.Context, srpmPath string) (name, evr string, err error) {
	i.logger.Debug("querying package name and evr", "srpm", srpmPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "rpm",
		"-qp", "--nosignature", "--qf", "%{NAME} %{EPOCH} %{VERSION} %{RELEASE}", srpmPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", "", &QueryError{Path: srpmPath, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
	}
	if stderr.Len() > 0 {
		return "", "", &QueryError{Path: srpmPath, Err: fmt.Errorf("rpm wrote to stderr: %s", strings.TrimSpace(stderr.String()))}
	}

	fields := strings.Fields(stdout.String())
	if len(fields) != 4 {
		return "", "", &QueryError{Path: srpmPath, Output: stdout.String()}
	}

	return fields[0], FormatEVR(fields[1], fields[2], fields[3]), nil
}

// FormatEVR renders the epoch:version-release ordering key. A digit epoch is
// included; the unset sentinel ("(none)") drops the epoch part entirely.
func FormatEVR(epoch, version, release string) string {
	if isDigits(epoch) {
		return fmt.Sprintf("%s:%s-%s", epoch, version, release)
	}
	return fmt.Sprintf("%s-%s", version, release)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

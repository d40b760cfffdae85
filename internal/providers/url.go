package providers

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/TommyLike/copr/internal/models"
)

// SrpmURLProvider downloads a ready-made SRPM from a URL. It serves both the
// direct-link and the uploaded-package source types; for uploads the URL has
// already been resolved against the frontend during task decode.
type SrpmURLProvider struct {
	task       *models.ImportTask
	targetPath string
	client     *http.Client
	logger     *slog.Logger
}

// NewSrpmURLProvider creates a provider downloading task.PackageURL to targetPath.
func NewSrpmURLProvider(task *models.ImportTask, targetPath string, opts Options) *SrpmURLProvider {
	return &SrpmURLProvider{
		task:       task,
		targetPath: targetPath,
		client:     newDownloadClient(),
		logger:     opts.logger(),
	}
}

// newDownloadClient builds the HTTP client used for SRPM and payload
// downloads. Certificate verification is off: upload URLs regularly point at
// frontends running self-signed certificates.
func newDownloadClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// Produce streams the SRPM to the target path. Any HTTP status outside
// [200, 400), a transport failure or a write failure is a *DownloadError.
// No retries happen here; retry policy belongs to the operator.
func (p *SrpmURLProvider) Produce(ctx context.Context) error {
	p.logger.Debug("downloading package", "url", p.task.PackageURL)

	return fetchToFile(ctx, p.client, p.task.PackageURL, p.targetPath, redirectsAllowed)
}

// statusPredicate decides whether an HTTP status counts as success.
type statusPredicate func(code int) bool

// redirectsAllowed accepts any status in [200, 400).
func redirectsAllowed(code int) bool { return code >= 200 && code < 400 }

// successOnly accepts only 2xx statuses.
func successOnly(code int) bool { return code >= 200 && code < 300 }

// fetchToFile streams url into path with chunked writes, never buffering the
// whole body. On any failure the partially written file is removed so no
// caller can mistake it for a valid artifact.
func fetchToFile(ctx context.Context, client *http.Client, url, path string, ok statusPredicate) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	f, err := os.Create(path)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return &DownloadError{URL: url, Err: err}
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return &DownloadError{URL: url, Err: err}
	}

	return nil
}

package providers

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind is the machine-readable failure identifier posted back to the
// frontend when a task fails.
type FailureKind string

// Failure kinds understood by the frontend.
const (
	KindGitCloneFailed FailureKind = "git_clone_failed"
	KindWrongDirectory FailureKind = "tito_wrong_directory_in_git"
	KindCheckoutFailed FailureKind = "tito_git_checkout_error"
	KindSrpmBuildError FailureKind = "tito_srpm_build_error"
	KindDownloadFailed FailureKind = "srpm_download_failed"
	KindImportFailed   FailureKind = "git_import_failed"
	KindQueryFailed    FailureKind = "srpm_query_failed"
	KindUnknown        FailureKind = "unknown_error"
)

// kinded is implemented by every typed provider error.
type kinded interface {
	Kind() FailureKind
}

// KindOf classifies an error into a FailureKind. Errors that carry no kind
// collapse into KindUnknown so that one malformed task can never take the
// polling loop down with an unclassified fault.
func KindOf(err error) FailureKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// DownloadError represents a failed SRPM or payload download.
type DownloadError struct {
	// URL is the address that was being fetched.
	URL string

	// StatusCode is the HTTP status, if a response was received.
	StatusCode int

	// Err is the underlying transport or write error.
	Err error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DownloadError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *DownloadError) Kind() FailureKind { return KindDownloadFailed }

// CloneError represents a failed git clone.
type CloneError struct {
	// GitURL is the URL that was being cloned.
	GitURL string

	// Stderr contains the git stderr output.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CloneError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git clone of %s failed: %s", e.GitURL, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("git clone of %s failed: %v", e.GitURL, e.Err)
}

// Unwrap returns the underlying error.
func (e *CloneError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *CloneError) Kind() FailureKind { return KindGitCloneFailed }

// LayoutError represents an ambiguous checkout layout: the scratch directory
// did not contain exactly one cloned directory.
type LayoutError struct {
	// Dir is the scratch directory that was listed.
	Dir string

	// Entries are the names found in the scratch directory.
	Entries []string

	// Err is set when the directory could not be listed at all.
	Err error
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("listing checkout layout in %s: %v", e.Dir, e.Err)
	}
	return fmt.Sprintf("ambiguous checkout layout in %s: expected exactly one directory, found %d (%s)",
		e.Dir, len(e.Entries), strings.Join(e.Entries, ", "))
}

// Unwrap returns the underlying error.
func (e *LayoutError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *LayoutError) Kind() FailureKind { return KindWrongDirectory }

// CheckoutError represents a failed git branch checkout.
type CheckoutError struct {
	// Branch is the branch that was being checked out.
	Branch string

	// Stderr contains the git stderr output.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckoutError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git checkout of %s failed: %s", e.Branch, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("git checkout of %s failed: %v", e.Branch, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckoutError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *CheckoutError) Kind() FailureKind { return KindCheckoutFailed }

// BuildError represents a failed SRPM build step.
type BuildError struct {
	// Tool is the command that failed (tito, mock, ...).
	Tool string

	// Stderr contains diagnostic output captured for operator logs.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s build failed: %s", e.Tool, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s build failed: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *BuildError) Kind() FailureKind { return KindSrpmBuildError }

// ExtractionError represents a build-output directory that did not contain
// exactly one SRPM. Zero matches means the build produced nothing; more than
// one means the result is ambiguous. Neither is silently resolved.
type ExtractionError struct {
	// Dir is the directory that was scanned.
	Dir string

	// Matches are the SRPM candidates that were found.
	Matches []string

	// Err is set when the scan or the copy itself failed.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extracting srpm from %s: %v", e.Dir, e.Err)
	}
	if len(e.Matches) == 0 {
		return fmt.Sprintf("no *.src.rpm produced in %s", e.Dir)
	}
	return fmt.Sprintf("ambiguous build result in %s: %d *.src.rpm candidates (%s)",
		e.Dir, len(e.Matches), strings.Join(e.Matches, ", "))
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error { return e.Err }

// Kind returns the failure kind for the frontend.
func (e *ExtractionError) Kind() FailureKind { return KindSrpmBuildError }

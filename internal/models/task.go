// Package models defines the import task record and its wire representations.
package models

import (
	"encoding/json"
	"fmt"
)

// SourceType discriminates how the SRPM for a task is obtained.
type SourceType int

// Known source types. The numeric values are part of the queue protocol.
const (
	SourceSrpmLink   SourceType = 1
	SourceSrpmUpload SourceType = 2
	SourceGitAndTito SourceType = 3
	SourceGitAndMock SourceType = 4
	SourceCustom     SourceType = 5
)

// String returns a short human-readable name for the source type.
func (t SourceType) String() string {
	switch t {
	case SourceSrpmLink:
		return "srpm_link"
	case SourceSrpmUpload:
		return "srpm_upload"
	case SourceGitAndTito:
		return "git_and_tito"
	case SourceGitAndMock:
		return "git_and_mock"
	case SourceCustom:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// MalformedTaskError indicates a dequeued job could not be decoded into a task.
type MalformedTaskError struct {
	TaskID string
	Reason string
}

// Error implements the error interface.
func (e *MalformedTaskError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("malformed task %s: %s", e.TaskID, e.Reason)
	}
	return fmt.Sprintf("malformed task: %s", e.Reason)
}

// RawJob is the generic job envelope returned by the frontend queue.
type RawJob struct {
	TaskID     string `json:"task_id"`
	User       string `json:"user"`
	Project    string `json:"project"`
	Branch     string `json:"branch"`
	SourceType int    `json:"source_type"`
	SourceJSON string `json:"source_json"`
}

// ImportTask is the parsed, strongly-typed representation of one build request.
// Identity and routing fields are set once by TaskFromJob; the result fields
// stay zero until the corresponding pipeline stage succeeds.
type ImportTask struct {
	TaskID  string
	User    string
	Project string
	Branch  string

	SourceType SourceType

	// For SourceSrpmLink and SourceSrpmUpload: the resolved download URL.
	PackageURL string

	// For SourceGitAndTito and SourceGitAndMock.
	GitURL    string
	GitBranch string
	GitDir    string

	// For SourceGitAndTito.
	TitoTest bool

	// For SourceCustom.
	Script         string
	Chroot         string
	BuildDeps      string
	ResultDir      string
	HookPayloadURL string

	// Result fields, populated during processing.
	PackageName string
	PackageEVR  string
	GitHash     string
}

// linkPayload is the source_json shape for SourceSrpmLink.
type linkPayload struct {
	URL string `json:"url"`
}

// uploadPayload is the source_json shape for SourceSrpmUpload.
type uploadPayload struct {
	Tmp string `json:"tmp"`
	Pkg string `json:"pkg"`
}

// gitPayload is the source_json shape for the git-based source types.
type gitPayload struct {
	GitURL    string `json:"git_url"`
	GitBranch string `json:"git_branch"`
	GitDir    string `json:"git_dir"`
	TitoTest  bool   `json:"tito_test"`
}

// customPayload is the source_json shape for SourceCustom.
type customPayload struct {
	Script    string          `json:"script"`
	Chroot    string          `json:"chroot"`
	BuildDeps string          `json:"builddeps"`
	ResultDir string          `json:"resultdir"`
	Tmp       string          `json:"tmp"`
	HookData  json.RawMessage `json:"hook_data"`
}

// TaskFromJob decodes a generic job envelope and its type-specific payload
// into an ImportTask. Upload references are resolved into absolute URLs
// against frontendBaseURL. A missing or unknown source type, or a payload
// missing required fields, yields a *MalformedTaskError.
func TaskFromJob(job *RawJob, frontendBaseURL string) (*ImportTask, error) {
	task := &ImportTask{
		TaskID:     job.TaskID,
		User:       job.User,
		Project:    job.Project,
		Branch:     job.Branch,
		SourceType: SourceType(job.SourceType),
	}

	switch task.SourceType {
	case SourceSrpmLink:
		var p linkPayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		if p.URL == "" {
			return nil, &MalformedTaskError{TaskID: job.TaskID, Reason: "missing url in payload"}
		}
		task.PackageURL = p.URL

	case SourceSrpmUpload:
		var p uploadPayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		if p.Tmp == "" || p.Pkg == "" {
			return nil, &MalformedTaskError{TaskID: job.TaskID, Reason: "missing tmp/pkg in payload"}
		}
		task.PackageURL = fmt.Sprintf("%s/tmp/%s/%s", frontendBaseURL, p.Tmp, p.Pkg)

	case SourceGitAndTito, SourceGitAndMock:
		var p gitPayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		if p.GitURL == "" {
			return nil, &MalformedTaskError{TaskID: job.TaskID, Reason: "missing git_url in payload"}
		}
		task.GitURL = p.GitURL
		task.GitBranch = p.GitBranch
		task.GitDir = p.GitDir
		if task.SourceType == SourceGitAndTito {
			task.TitoTest = p.TitoTest
		}

	case SourceCustom:
		var p customPayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		if p.Script == "" {
			return nil, &MalformedTaskError{TaskID: job.TaskID, Reason: "missing script in payload"}
		}
		task.Script = p.Script
		task.Chroot = p.Chroot
		task.BuildDeps = p.BuildDeps
		task.ResultDir = p.ResultDir
		if len(p.HookData) > 0 && p.Tmp != "" {
			task.HookPayloadURL = fmt.Sprintf("%s/tmp/%s/hook_payload", frontendBaseURL, p.Tmp)
		}

	default:
		return nil, &MalformedTaskError{
			TaskID: job.TaskID,
			Reason: fmt.Sprintf("unknown source type %d", job.SourceType),
		}
	}

	return task, nil
}

func decodePayload(job *RawJob, dst any) error {
	if job.SourceJSON == "" {
		return &MalformedTaskError{TaskID: job.TaskID, Reason: "empty source_json"}
	}
	if err := json.Unmarshal([]byte(job.SourceJSON), dst); err != nil {
		return &MalformedTaskError{
			TaskID: job.TaskID,
			Reason: fmt.Sprintf("invalid source_json: %v", err),
		}
	}
	return nil
}

// Reponame derives the dist-git repository name (user/project/package).
// It is only available once the package has been identified.
func (t *ImportTask) Reponame() (string, bool) {
	if t.User == "" || t.Project == "" || t.PackageName == "" {
		return "", false
	}
	return fmt.Sprintf("%s/%s/%s", t.User, t.Project, t.PackageName), true
}

// SuccessPayload is the notification body posted on a successful import.
type SuccessPayload struct {
	TaskID     string `json:"task_id"`
	PkgName    string `json:"pkg_name"`
	PkgVersion string `json:"pkg_version"`
	RepoName   string `json:"repo_name"`
	GitHash    string `json:"git_hash"`
}

// FailurePayload is the notification body posted on a failed import.
type FailurePayload struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// FrontendSuccess builds the success payload for this task. The task must
// have passed package identification and import.
func (t *ImportTask) FrontendSuccess() *SuccessPayload {
	repo, _ := t.Reponame()
	return &SuccessPayload{
		TaskID:     t.TaskID,
		PkgName:    t.PackageName,
		PkgVersion: t.PackageEVR,
		RepoName:   repo,
		GitHash:    t.GitHash,
	}
}

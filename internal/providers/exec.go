package providers

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// cmdResult holds the captured output of one subprocess invocation.
type cmdResult struct {
	stdout string
	stderr string
}

// runCmd executes a command in dir, capturing both output streams. It fails
// on a launch error or a non-zero exit; the returned result is always
// non-nil so callers can attach the captured stderr to their typed errors.
func runCmd(ctx context.Context, dir, name string, args ...string) (*cmdResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &cmdResult{stdout: stdout.String(), stderr: stderr.String()}
	if err != nil {
		return res, fmt.Errorf("running %s: %w", name, err)
	}
	return res, nil
}

// runStrict executes a command like runCmd but additionally treats any
// stderr output as failure, even on a zero exit. This is the legacy
// zero-tolerance contract for the clone, checkout and tito build steps.
//
// TODO: confirm against real tito behavior whether benign progress output on
// stderr ever trips this; the frontend has always relied on the strict form.
func runStrict(ctx context.Context, dir, name string, args ...string) (*cmdResult, error) {
	res, err := runCmd(ctx, dir, name, args...)
	if err != nil {
		return res, err
	}
	if res.stderr != "" {
		return res, fmt.Errorf("%s wrote to stderr", name)
	}
	return res, nil
}

package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TommyLike/copr/internal/models"
	"github.com/TommyLike/copr/pkg/config"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScriptImporterParsesCommitHash(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "import_srpm.sh",
		`echo "importing $1 branch $2 srpm $3"
echo deadbeefcafe`)

	imp := NewScriptImporter(script, nil)
	task := &models.ImportTask{
		TaskID:      "1",
		User:        "bob",
		Project:     "tools",
		Branch:      "el7",
		PackageName: "pkg",
	}

	hash, err := imp.ImportSrpm(context.Background(), task, "/tmp/package.src.rpm", t.TempDir())
	if err != nil {
		t.Fatalf("ImportSrpm failed: %v", err)
	}
	if hash != "deadbeefcafe" {
		t.Errorf("hash = %q, want deadbeefcafe", hash)
	}
}

func TestScriptImporterPassesArguments(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args")
	script := writeScript(t, dir, "import_srpm.sh",
		`echo "$1 $2 $3" > `+record+`
echo abc123`)

	imp := NewScriptImporter(script, nil)
	task := &models.ImportTask{
		TaskID:      "2",
		User:        "bob",
		Project:     "tools",
		Branch:      "f40",
		PackageName: "pkg",
	}

	if _, err := imp.ImportSrpm(context.Background(), task, "/work/package.src.rpm", t.TempDir()); err != nil {
		t.Fatalf("ImportSrpm failed: %v", err)
	}

	got, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	want := "bob/tools/pkg f40 /work/package.src.rpm"
	if strings.TrimSpace(string(got)) != want {
		t.Errorf("script arguments = %q, want %q", strings.TrimSpace(string(got)), want)
	}
}

func TestScriptImporterRunsInScratchDir(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "cwd")
	script := writeScript(t, dir, "import_srpm.sh",
		`pwd > `+record+`
echo abc123`)

	scratch := t.TempDir()
	imp := NewScriptImporter(script, nil)
	task := &models.ImportTask{User: "u", Project: "p", PackageName: "n"}

	if _, err := imp.ImportSrpm(context.Background(), task, "/work/package.src.rpm", scratch); err != nil {
		t.Fatalf("ImportSrpm failed: %v", err)
	}

	got, err := os.ReadFile(record)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(got)) != scratch {
		t.Errorf("script cwd = %q, want %q", strings.TrimSpace(string(got)), scratch)
	}
}

func TestScriptImporterScriptFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "import_srpm.sh",
		`echo "push rejected" >&2
exit 1`)

	imp := NewScriptImporter(script, nil)
	task := &models.ImportTask{User: "u", Project: "p", PackageName: "n"}

	_, err := imp.ImportSrpm(context.Background(), task, "/work/package.src.rpm", t.TempDir())
	if err == nil {
		t.Fatal("ImportSrpm should fail when the script exits non-zero")
	}
	if !strings.Contains(err.Error(), "push rejected") {
		t.Errorf("error %q should carry the script stderr", err)
	}
}

func TestScriptImporterNoOutput(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "import_srpm.sh", "exit 0")

	imp := NewScriptImporter(script, nil)
	task := &models.ImportTask{User: "u", Project: "p", PackageName: "n"}

	if _, err := imp.ImportSrpm(context.Background(), task, "/work/package.src.rpm", t.TempDir()); err == nil {
		t.Fatal("ImportSrpm should fail when the script prints no commit hash")
	}
}

func TestScriptImporterUnidentifiedPackage(t *testing.T) {
	imp := NewScriptImporter("/usr/share/dist-git/import_srpm.sh", nil)
	task := &models.ImportTask{TaskID: "3", User: "u", Project: "p"}

	if _, err := imp.ImportSrpm(context.Background(), task, "/work/package.src.rpm", t.TempDir()); err == nil {
		t.Fatal("ImportSrpm should refuse a task with no identified package")
	}
}

func TestProvisionerEnsureRepo(t *testing.T) {
	dir := t.TempDir()
	pkgRecord := filepath.Join(dir, "pkg-args")
	branchRecord := filepath.Join(dir, "branch-args")

	cfg := config.DistGitConfig{
		PackageScript: writeScript(t, dir, "git_package.sh", `echo "$@" > `+pkgRecord),
		BranchScript:  writeScript(t, dir, "git_branch.sh", `echo "$@" > `+branchRecord),
	}

	p := NewProvisioner(cfg, nil)
	p.EnsureRepo(context.Background(), "bob/tools/pkg", "el7")

	pkgArgs, err := os.ReadFile(pkgRecord)
	if err != nil {
		t.Fatalf("package script did not run: %v", err)
	}
	if strings.TrimSpace(string(pkgArgs)) != "bob/tools/pkg" {
		t.Errorf("package script args = %q", strings.TrimSpace(string(pkgArgs)))
	}

	branchArgs, err := os.ReadFile(branchRecord)
	if err != nil {
		t.Fatalf("branch script did not run: %v", err)
	}
	if strings.TrimSpace(string(branchArgs)) != "el7 bob/tools/pkg" {
		t.Errorf("branch script args = %q", strings.TrimSpace(string(branchArgs)))
	}
}

func TestProvisionerEnsureRepoIdempotent(t *testing.T) {
	dir := t.TempDir()
	pkgRecord := filepath.Join(dir, "pkg-args")
	branchRecord := filepath.Join(dir, "branch-args")

	cfg := config.DistGitConfig{
		PackageScript: writeScript(t, dir, "git_package.sh", `echo "$@" >> `+pkgRecord),
		BranchScript:  writeScript(t, dir, "git_branch.sh", `echo "$@" >> `+branchRecord),
	}

	p := NewProvisioner(cfg, nil)
	p.EnsureRepo(context.Background(), "bob/tools/pkg", "el7")
	p.EnsureRepo(context.Background(), "bob/tools/pkg", "el7")

	for record, want := range map[string]string{
		pkgRecord:    "bob/tools/pkg",
		branchRecord: "el7 bob/tools/pkg",
	} {
		data, err := os.ReadFile(record)
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("script ran %d times, want 2", len(lines))
		}
		for _, line := range lines {
			if line != want {
				t.Errorf("invocation args = %q, want %q on both runs", line, want)
			}
		}
	}
}

func TestProvisionerToleratesFailingScripts(t *testing.T) {
	cfg := config.DistGitConfig{
		PackageScript: "/nonexistent/git_package.sh",
		BranchScript:  "/nonexistent/git_branch.sh",
		ListingScript: "/nonexistent/cgit_pkg_list.sh",
	}

	p := NewProvisioner(cfg, nil)

	// Neither call may panic or surface an error.
	p.EnsureRepo(context.Background(), "bob/tools/pkg", "el7")
	p.RefreshListing(context.Background())
}

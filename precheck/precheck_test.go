package precheck

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeScript(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestHasZeroTotalLineMatchesVariants(t *testing.T) {
	cases := []struct {
		output string
		want   bool
	}{
		{"TOTAL: 0 issues\n", true},
		{"scanning...\nTOTAL 3 files, 0 critical\n", true},
		{"TOTAL: 2 issues\n", false},
		{"no summary line here\n", false},
	}
	for _, c := range cases {
		if got := hasZeroTotalLine(c.output); got != c.want {
			t.Errorf("hasZeroTotalLine(%q) = %v, want %v", c.output, got, c.want)
		}
	}
}

func TestRunAllPassesWhenAllCheckersReportZero(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeScript(t, root, "maintenance/validate.sh", "#!/bin/sh\necho 'TOTAL: 0 issues'\n")
	writeScript(t, root, "maintenance/intel_scan.py", "#!/bin/sh\necho 'TOTAL: 0 critical'\n")

	passed, results := RunAll(context.Background(), root)
	if !passed {
		t.Fatalf("expected all checkers to pass, got %+v", results)
	}
}

func TestRunAllFailsWhenOneCheckerReportsIssues(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeScript(t, root, "maintenance/validate.sh", "#!/bin/sh\necho 'TOTAL: 1 issues'\n")
	writeScript(t, root, "maintenance/intel_scan.py", "#!/bin/sh\necho 'TOTAL: 0 critical'\n")

	passed, results := RunAll(context.Background(), root)
	if passed {
		t.Fatalf("expected failure, got %+v", results)
	}
}

package apply

import (
	"strings"
	"testing"
)

func TestUnifiedDiffNoChangesIsEmpty(t *testing.T) {
	lines := []string{"a", "b", "c"}
	got := UnifiedDiff(lines, lines, "a/f", "b/f")
	if got != "" {
		t.Fatalf("expected empty diff for identical input, got %q", got)
	}
}

func TestUnifiedDiffShowsAddedLine(t *testing.T) {
	old := []string{"[D-1]", "Statement: x", "Status: active"}
	new := []string{"[D-1]", "Statement: x", "Status: active", "", "[D-2]", "Statement: y"}
	got := UnifiedDiff(old, new, "a/f", "b/f")
	if !strings.Contains(got, "+[D-2]") || !strings.Contains(got, "+Statement: y") {
		t.Fatalf("expected added lines in diff, got %q", got)
	}
	if !strings.HasPrefix(got, "--- a/f\n+++ b/f\n") {
		t.Fatalf("expected file header lines, got %q", got)
	}
}

func TestUnifiedDiffShowsReplacedLine(t *testing.T) {
	old := []string{"Status: active"}
	new := []string{"Status: superseded"}
	got := UnifiedDiff(old, new, "a/f", "b/f")
	if !strings.Contains(got, "-Status: active") || !strings.Contains(got, "+Status: superseded") {
		t.Fatalf("expected replace diff, got %q", got)
	}
}

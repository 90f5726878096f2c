// Package precheck runs the two external precondition checkers (§4.L
// gate 8 and gate 12 post-check) as subprocesses. It is the one place
// os/exec appears in the core: the validator and intel scanner are kept
// out-of-process collaborators rather than reimplemented.
package precheck

import (
	"bufio"
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const subprocessTimeout = 60 * time.Second

// totalLine matches a summary line like "TOTAL: 0 issues" or
// "TOTAL 3 critical, 0 issues" — the gate only cares whether the zero
// count it names is actually zero.
var totalLine = regexp.MustCompile(`(?i)TOTAL.*?\b0\s+(issues|critical)\b`)

// Checker is one registered external precondition checker.
type Checker struct {
	Name string
	Path string // relative to workspace root
	Args []string
}

// Checkers is the ordered registry of the two collaborators named in
// the workspace layout: a validator script and an intelligence scanner.
var Checkers = []Checker{
	{Name: "validate", Path: "maintenance/validate.sh"},
	{Name: "intel_scan", Path: "maintenance/intel_scan.py", Args: []string{}},
}

// Result is one checker's outcome.
type Result struct {
	Name   string
	Passed bool
	Output string
	Err    error
}

// RunAll runs every registered checker against root and reports whether
// all of them passed. A checker is considered passed only if it exits
// zero and its combined output contains a TOTAL line naming a zero
// count.
func RunAll(ctx context.Context, root string) (bool, []Result) {
	results := make([]Result, 0, len(Checkers))
	allPassed := true
	for _, c := range Checkers {
		res := run(ctx, root, c)
		results = append(results, res)
		if !res.Passed {
			allPassed = false
		}
	}
	return allPassed, results
}

func run(ctx context.Context, root string, c Checker) Result {
	cctx, cancel := context.WithTimeout(ctx, subprocessTimeout)
	defer cancel()

	path := filepath.Join(root, c.Path)
	cmd := exec.CommandContext(cctx, path, c.Args...)
	cmd.Dir = root

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		return Result{Name: c.Name, Passed: false, Output: output, Err: err}
	}
	if !hasZeroTotalLine(output) {
		return Result{Name: c.Name, Passed: false, Output: output}
	}
	return Result{Name: c.Name, Passed: true, Output: output}
}

func hasZeroTotalLine(output string) bool {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if totalLine.MatchString(scanner.Text()) {
			return true
		}
	}
	return false
}

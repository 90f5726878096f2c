// Package snapshot implements the atomic-rollback contract of §4.J: a
// content- and mtime-preserving copy of the watched subtrees and
// top-level files into a timestamped directory, and a whole-subtree
// mirror restore from it.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Subtrees is the fixed set of directories copied into every snapshot.
var Subtrees = []string{"decisions", "tasks", "entities", "summaries", "intelligence", "memory", "maintenance"}

// TopLevelFiles is the fixed set of root files copied into every snapshot.
var TopLevelFiles = []string{"AGENTS.md", "MEMORY.md", "IDENTITY.md"}

const timestampLayout = "20060102-150405"

// Snapshot identifies one captured state: Dir is the human-readable
// timestamp directory, RunID a uuid generated by each Create. RunID is
// not written to the receipt; two snapshots taken within the same
// second share the same Dir.
type Snapshot struct {
	Dir   string
	RunID string
}

// Create copies the watched subtrees and top-level files from root into
// a new directory under root/intelligence/applied/.
func Create(root string, now time.Time) (*Snapshot, error) {
	dirName := now.UTC().Format(timestampLayout)
	dest := filepath.Join(root, "intelligence", "applied", dirName)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	for _, sub := range Subtrees {
		src := filepath.Join(root, sub)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyTree(src, filepath.Join(dest, sub)); err != nil {
			return nil, fmt.Errorf("snapshot: copy subtree %s: %w", sub, err)
		}
	}
	for _, name := range TopLevelFiles {
		src := filepath.Join(root, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, filepath.Join(dest, name)); err != nil {
			return nil, fmt.Errorf("snapshot: copy file %s: %w", name, err)
		}
	}

	return &Snapshot{Dir: dest, RunID: uuid.NewString()}, nil
}

// Restore mirrors snapshot back onto root: every watched subtree and
// top-level file is replaced wholesale, and any path present in the
// workspace but absent from the snapshot is removed. Snapshot
// directories under intelligence/applied are neither copied nor removed.
func Restore(root, snapshotDir string) error {
	for _, sub := range Subtrees {
		snapSub := filepath.Join(snapshotDir, sub)
		workSub := filepath.Join(root, sub)
		if _, err := os.Stat(snapSub); os.IsNotExist(err) {
			if err := os.RemoveAll(workSub); err != nil {
				return fmt.Errorf("snapshot: remove subtree %s: %w", sub, err)
			}
			continue
		}
		if err := mirrorTree(snapSub, workSub); err != nil {
			return fmt.Errorf("snapshot: restore subtree %s: %w", sub, err)
		}
	}
	for _, name := range TopLevelFiles {
		snapFile := filepath.Join(snapshotDir, name)
		if _, err := os.Stat(snapFile); os.IsNotExist(err) {
			if err := os.Remove(filepath.Join(root, name)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("snapshot: remove file %s: %w", name, err)
			}
			continue
		}
		if err := copyFile(snapFile, filepath.Join(root, name)); err != nil {
			return fmt.Errorf("snapshot: restore file %s: %w", name, err)
		}
	}
	return nil
}

// copyTree recursively copies src onto dest, preserving mtimes.
func copyTree(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() && path != src && strings.HasPrefix(dest, path+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target)
	})
}

// mirrorTree makes dest an exact copy of src, deleting anything in dest
// not present in src.
func mirrorTree(src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	present := map[string]bool{}
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		present[rel] = true
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target)
	})
	if err != nil {
		return err
	}

	return filepath.Walk(dest, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if path == dest {
			return nil
		}
		if info.IsDir() && strings.HasPrefix(src, path+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		if present[rel] {
			return nil
		}
		if info.IsDir() {
			return os.RemoveAll(path)
		}
		return os.Remove(path)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Options controls how files are written.
type Options struct {
	OutDir string // required; target directory
	Force  bool   // write into a non-empty directory
	DryRun bool   // plan only
}

// PlannedFile describes a file the writer intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in deterministic order.
type Result struct {
	OutDir  string
	Planned []PlannedFile
}

// Write plans files (relative path -> content) under opts.OutDir and, unless
// DryRun is set, writes each one atomically.
func Write(ctx context.Context, files map[string][]byte, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output: OutDir is required")
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	res := &Result{OutDir: abs, Planned: make([]PlannedFile, 0, len(rels))}
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}
	if opts.DryRun {
		return res, nil
	}
	if err := writeFiles(ctx, abs, rels, files, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}

func writeFiles(ctx context.Context, abs string, rels []string, files map[string][]byte, force bool) error {
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, files[rel], 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

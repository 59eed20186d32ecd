// Package ingest resolves the command-line input arguments into a
// concrete list of PDF documents to process.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collect expands each input into PDF paths: directories are walked
// recursively, glob patterns expanded, plain files taken as-is.
// The result is deduplicated and sorted for a stable processing order.
func Collect(inputs []string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string

	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		switch {
		case err == nil && info.IsDir():
			if err := walkPDFs(in, add); err != nil {
				return nil, fmt.Errorf("walk %s: %w", in, err)
			}
		case err == nil:
			add(in)
		case strings.ContainsAny(in, "*?["):
			matches, err := filepath.Glob(in)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", in, err)
			}
			for _, m := range matches {
				if isPDF(m) {
					add(m)
				}
			}
		default:
			return nil, fmt.Errorf("input not found: %s", in)
		}
	}

	sort.Strings(out)
	return out, nil
}

func walkPDFs(root string, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isPDF(path) {
			add(path)
		}
		return nil
	})
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

package search

import (
	"context"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/idecore/internal/errors"
)

// FileProvider matches file names below Root. Characters of the query must
// appear in order in the file name; tighter and earlier matches score
// higher.
type FileProvider struct {
	Root string
	// Skip reports directories to leave out. Nil skips dot directories.
	Skip func(path string) bool
}

// Search implements Provider.
func (p *FileProvider) Search(ctx context.Context, query string, max int) ([]Result, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	skip := p.Skip
	if skip == nil {
		skip = func(path string) bool { return strings.HasPrefix(filepath.Base(path), ".") }
	}

	var out []Result
	err := filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return errors.NewCanceledError("file search", err)
		}
		if d.IsDir() {
			if path != p.Root && skip(path) {
				return filepath.SkipDir
			}
			return nil
		}
		score, ok := fuzzyScore(strings.ToLower(d.Name()), query)
		if !ok {
			return nil
		}
		rel, _ := filepath.Rel(p.Root, path)
		out = append(out, Result{
			Title:    d.Name(),
			Subtitle: filepath.Dir(rel),
			URI:      (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(),
			Score:    score,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// fuzzyScore matches query as a subsequence of name. The score favors
// matches that start early and have few gaps.
func fuzzyScore(name, query string) (float64, bool) {
	qi := 0
	first, last := -1, -1
	q := []rune(query)
	for i, r := range []rune(name) {
		if qi < len(q) && r == q[qi] {
			if first < 0 {
				first = i
			}
			last = i
			qi++
		}
	}
	if qi < len(q) {
		return 0, false
	}
	span := float64(last - first + 1)
	return float64(len(q)) / (span + float64(first)), true
}

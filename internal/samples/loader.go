// Package samples reads sample emails from disk for batch style learning.
package samples

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/draftsmith/internal/apperr"
)

const defaultConcurrency = 4

// Extensions lists the file types Load understands.
var Extensions = []string{".txt", ".md", ".eml", ".html", ".htm", ".pdf"}

// Sample is one email read from a file. A file that could not be read
// yields a single sample with empty Text and Err set.
type Sample struct {
	Path string
	Part int // position within the file, from 0
	Text string
	Err  error
}

// Options configures Load.
type Options struct {
	Concurrency int // files read at once; 4 when <= 0
}

// Load reads every sample found under paths. Directories are expanded to
// the supported files they contain. Results keep the order of paths, and
// within a directory the lexical order of file names.
func Load(ctx context.Context, paths []string, opts Options) ([]Sample, error) {
	if len(paths) == 0 {
		return nil, apperr.New(apperr.InvalidRequest, "no sample files given")
	}
	files, err := Expand(paths)
	if err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	perFile := make([][]Sample, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, path := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := ReadFile(path)
			if err != nil {
				slog.Warn("sample unreadable", "path", path, "error", err)
				perFile[i] = []Sample{{Path: path, Err: err}}
				return nil
			}
			parts := Split(text)
			if len(parts) == 0 {
				perFile[i] = []Sample{{Path: path}}
				return nil
			}
			for j, p := range parts {
				perFile[i] = append(perFile[i], Sample{Path: path, Part: j, Text: p})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}

	var out []Sample
	for _, s := range perFile {
		out = append(out, s...)
	}
	slog.Debug("samples loaded", "files", len(files), "samples", len(out))
	return out, nil
}

// Texts returns the text of every sample, empty for unreadable ones, in
// order. It is what batch learning consumes.
func Texts(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}

// Expand resolves directories into the supported files they contain.
// Paths that do not exist are kept so reading them reports the error.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && Supported(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Supported reports whether path has an extension Load understands.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

var separatorRe = regexp.MustCompile(`(?m)^\s*-{3,}\s*$`)

// Split breaks text into emails on lines made only of three or more
// dashes. Blank parts are dropped.
func Split(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, part := range separatorRe.Split(text, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/draftsmith/internal/apperr"
)

// TemplateExt is the file extension of template files.
const TemplateExt = ".md"

// Parse reads a template from YAML front matter followed by the body.
func Parse(content []byte) (Template, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return Template{}, apperr.New(apperr.CorruptTemplate, "missing front matter delimiter")
	}

	var front []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		front = append(front, line)
	}
	if !closed {
		return Template{}, apperr.New(apperr.CorruptTemplate, "unterminated front matter")
	}

	var t Template
	if err := yaml.Unmarshal([]byte(strings.Join(front, "\n")), &t); err != nil {
		return Template{}, apperr.Wrap(err, apperr.CorruptTemplate, "parsing front matter")
	}

	var body []string
	for scanner.Scan() {
		body = append(body, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Template{}, apperr.Wrap(err, apperr.CorruptTemplate, "reading template")
	}
	t.Body = strings.TrimSpace(strings.Join(body, "\n"))

	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Serialize writes t as YAML front matter followed by the body.
func Serialize(t Template) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	buf.WriteString("---\n\n")
	buf.WriteString(t.Body)
	if !strings.HasSuffix(t.Body, "\n") {
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// ReadFile loads and validates a single template file.
func ReadFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("reading template %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	t.Source = path
	return t, nil
}

// SkippedFile is a template file that failed to load.
type SkippedFile struct {
	Path string
	Err  error
}

// LoadDir reads every template file below dir. Files that fail to parse are
// logged and returned as skipped so one broken custom template does not hide
// the rest. A missing dir yields no templates.
func LoadDir(dir string) ([]Template, []SkippedFile, error) {
	return loadFS(os.DirFS(dir), ".", dir)
}

func loadFS(fsys fs.FS, root, label string) ([]Template, []SkippedFile, error) {
	var out []Template
	var skipped []SkippedFile
	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, TemplateExt) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		source := filepath.Join(label, path)
		t, err := Parse(data)
		if err != nil {
			slog.Warn("skipping invalid template", "file", source, "error", err)
			skipped = append(skipped, SkippedFile{Path: source, Err: err})
			return nil
		}
		t.Source = source
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, skipped, nil
}

// WriteFile stores t under dir as <category>/<id>.md. An existing file is
// only replaced when overwrite is set.
func WriteFile(dir string, t Template, overwrite bool) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	data, err := Serialize(t)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, t.Category, t.ID+TemplateExt)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", apperr.New(apperr.InvalidRequest, "template file %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating template dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing template: %w", err)
	}
	return path, nil
}

package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/recallkit/recall/internal/memory"
)

// filenameDateRe matches a yyyy-mm-dd prefix on a file name.
var filenameDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// createdLayouts are the string formats accepted for a front-matter
// created: value. YAML-native timestamps arrive as time.Time and skip these.
var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006 at 3:04 PM",
	"Jan 2, 2006",
}

// LoadMarkdown parses one markdown file into chunked memory items.
//
// The chunk timestamp comes from, in order of preference: the front-matter
// created: field, a yyyy-mm-dd prefix on the file name (fixed to noon UTC),
// or the file mtime. When front matter and file name disagree on the date,
// the file name wins.
func LoadMarkdown(path string) ([]memory.Item, error) {
	return loadMarkdown(path, path)
}

// LoadDir walks root recursively and parses every .md file found. The source
// recorded on each chunk is the file's path relative to root.
func LoadDir(root string) ([]memory.Item, error) {
	var items []memory.Item
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		source, err := filepath.Rel(root, path)
		if err != nil {
			source = path
		}
		chunks, err := loadMarkdown(path, source)
		if err != nil {
			return err
		}
		items = append(items, chunks...)
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return items, nil
}

func loadMarkdown(path, source string) ([]memory.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	meta, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	fmAt, fmOK := frontmatterCreated(meta)
	fnAt, fnOK := filenameDate(path)

	var created time.Time
	switch {
	case fmOK && fnOK && !sameDate(fmAt, fnAt):
		// The file name decides conflicting dates.
		created = fnAt
	case fmOK:
		created = fmAt
	case fnOK:
		created = fnAt
	default:
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat markdown: %w", err)
		}
		created = info.ModTime().UTC()
	}

	chunks, err := SplitText(body)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", path, err)
	}

	stamp := memory.FormatTimestamp(created)
	items := make([]memory.Item, 0, len(chunks))
	for _, chunk := range chunks {
		items = append(items, memory.Item{
			ID:      uuid.NewString(),
			Content: chunk,
			Metadata: map[string]any{
				memory.MetaSource:    source,
				memory.MetaCreatedAt: stamp,
				memory.MetaType:      memory.TypeDocument,
			},
		})
	}
	return items, nil
}

// splitFrontmatter separates a leading YAML front-matter block from the
// body. Files without a complete block are returned whole with no metadata.
func splitFrontmatter(text string) (map[string]any, string, error) {
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, "\r") != "---" {
		return nil, text, nil
	}

	offset := 0
	for _, line := range strings.SplitAfter(rest, "\n") {
		if strings.TrimRight(line, "\r\n") == "---" {
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(rest[:offset]), &meta); err != nil {
				return nil, "", fmt.Errorf("front matter: %w", err)
			}
			return meta, rest[offset+len(line):], nil
		}
		offset += len(line)
	}
	return nil, text, nil
}

// frontmatterCreated reads the created: field, which may arrive as a YAML
// timestamp or as one of a few known string formats.
func frontmatterCreated(meta map[string]any) (time.Time, bool) {
	raw, ok := meta["created"]
	if !ok {
		return time.Time{}, false
	}

	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range createdLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// filenameDate reads a yyyy-mm-dd prefix off the file name. The time of day
// is fixed to noon UTC.
func filenameDate(path string) (time.Time, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	match := filenameDateRe.FindString(stem)
	if match == "" {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", match)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(12 * time.Hour), true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// SeedEntry is one handle to ingest, with where it came from.
type SeedEntry struct {
	Handle   string
	Category domain.Category
	Source   string
	Line     int
}

// ParseSeeds reads one "handle[,category]" per line. Blank lines and lines
// starting with # are skipped, as is a "handle,category" header row.
func ParseSeeds(r io.Reader, source string, def domain.Category) ([]SeedEntry, error) {
	var entries []SeedEntry

	sc := bufio.NewScanner(r)
	line := 0
	header := true
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		handle, rawCategory, _ := strings.Cut(text, ",")
		handle = strings.TrimSpace(handle)
		rawCategory = strings.TrimSpace(rawCategory)

		first := header
		header = false
		if first && strings.EqualFold(handle, "handle") {
			continue
		}
		if handle == "" {
			return nil, fmt.Errorf("%s:%d: empty handle", source, line)
		}

		category := def
		if rawCategory != "" {
			c, err := domain.ParseCategory(rawCategory)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", source, line, err)
			}
			category = c
		}

		entries = append(entries, SeedEntry{Handle: handle, Category: category, Source: source, Line: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return entries, nil
}

// LoadSeeds walks root and parses every matching file, dropping repeats of
// the same category and handle (case-insensitive).
func LoadSeeds(walker port.FileWalker, root string, def domain.Category) ([]SeedEntry, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	seen := make(map[string]bool)
	var all []SeedEntry
	for _, f := range files {
		entries, err := parseFile(f.Path, def)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			k := string(e.Category) + "_" + strings.ToLower(strings.TrimPrefix(e.Handle, "@"))
			if seen[k] {
				continue
			}
			seen[k] = true
			all = append(all, e)
		}
	}
	return all, nil
}

func parseFile(path string, def domain.Category) ([]SeedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	return ParseSeeds(f, path, def)
}

package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

type migrationFile struct {
	version string
	name    string
	file    string
}

// scanDir lists the goose files in dir keyed by version. Non .sql entries are
// ignored; a malformed or duplicated .sql name is an error.
func scanDir(dir string) (map[string]migrationFile, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	files := map[string]migrationFile{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		if prev, dup := files[m[1]]; dup {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev.file, e.Name())
		}
		files[m[1]] = migrationFile{version: m[1], name: m[2], file: e.Name()}
	}
	return files, nil
}

// ValidateDir checks file names and that every migration carries both goose
// sections.
func ValidateDir(dir string) error {
	files, err := scanDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	for _, f := range files {
		body, err := os.ReadFile(filepath.Join(dir, f.file))
		if err != nil {
			return fmt.Errorf("read file %q: %w", f.file, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("migration %q missing %q", f.file, marker)
			}
		}
	}
	return nil
}

// ValidateParity requires the postgres and sqlite trees to hold the same
// versions under the same names, so both drivers reach the same schema.
func ValidateParity(dirA, dirB string) error {
	a, err := scanDir(dirA)
	if err != nil {
		return err
	}
	b, err := scanDir(dirB)
	if err != nil {
		return err
	}

	for v, fa := range a {
		fb, ok := b[v]
		if !ok {
			return fmt.Errorf("migration %q in %q has no counterpart in %q", fa.file, dirA, dirB)
		}
		if fa.name != fb.name {
			return fmt.Errorf("migration %s is %q in %q but %q in %q", v, fa.file, dirA, fb.file, dirB)
		}
	}
	for v, fb := range b {
		if _, ok := a[v]; !ok {
			return fmt.Errorf("migration %q in %q has no counterpart in %q", fb.file, dirB, dirA)
		}
	}
	return nil
}

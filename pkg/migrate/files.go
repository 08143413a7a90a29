package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	fileName  = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const scaffold = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// Validate reports every problem in the migration set at once: bad file
// names, reused versions, missing Up/Down sections and unbalanced
// statement blocks.
func Validate(migrations fs.FS) error {
	if migrations == nil {
		return fmt.Errorf("no migrations supplied")
	}
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var problems error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := fileName.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: name must be <%s>_<slug>.sql", name, versionLayout))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], other))
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(name, string(body)))
	}
	return problems
}

func checkAnnotations(name, body string) error {
	var problems error
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, marker))
		}
	}
	if up, down := strings.Index(body, "-- +goose Up"), strings.Index(body, "-- +goose Down"); up >= 0 && down >= 0 && down < up {
		problems = multierr.Append(problems, fmt.Errorf("%s: Down section precedes Up", name))
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	ends := strings.Count(body, "-- +goose StatementEnd")
	if begins != ends {
		problems = multierr.Append(problems, fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, begins, ends))
	}
	return problems
}

// Slug lowercases name and joins its words with underscores.
func Slug(name string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// Scaffold writes an empty migration stamped with at into dir and returns
// its path.
func Scaffold(dir, name string, at time.Time) (string, error) {
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(dir, at.UTC().Format(versionLayout)+"_"+slug+".sql")
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(file, scaffold, slug); err != nil {
		_ = file.Close()
		return "", err
	}
	return target, file.Close()
}

package alembic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrScriptNotFound is returned when no migration script in the
// versions directory resolves to the requested revision.
var ErrScriptNotFound = errors.New("no migration script for revision")

// ScriptForRevision resolves a revision identifier to the path of its
// migration script. Alembic names scripts "<rev>_<slug>.py" so the
// filename prefix is tried first; scripts with custom names are found
// by scanning for the revision assignment in the file body.
func (p *Project) ScriptForRevision(id string) (string, error) {
	entries, err := os.ReadDir(p.VersionsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read versions directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".py") {
			continue
		}
		if strings.HasPrefix(name, id+"_") || name == id+".py" {
			return filepath.Join(p.VersionsDir, name), nil
		}
		candidates = append(candidates, name)
	}

	assign := revisionAssignPattern(id)
	for _, name := range candidates {
		path := filepath.Join(p.VersionsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if assign.Match(data) {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrScriptNotFound, id)
}

// revisionAssignPattern matches the module-level revision assignment,
// with or without the type annotation newer alembic templates emit.
func revisionAssignPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^revision(?:\s*:\s*[^=\n]+)?\s*=\s*['"]` + regexp.QuoteMeta(id) + `['"]`)
}

package alembic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Project represents a located Alembic project: the directory holding
// alembic.ini plus the resolved migration-script environment.
type Project struct {
	Root        string // directory containing alembic.ini
	IniPath     string
	ScriptDir   string // resolved script_location
	VersionsDir string // where the revision scripts live
}

// FindProject locates the Alembic project containing startPath.
// path can be either:
//   - the project root itself (contains alembic.ini)
//   - any directory beneath it
//   - the alembic.ini file directly
func FindProject(startPath string) (*Project, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	iniPath, err := findIniFile(absPath)
	if err != nil {
		return nil, err
	}

	config, err := ParseIniFile(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", iniPath, err)
	}

	root := filepath.Dir(iniPath)
	scriptDir := resolveScriptDir(root, config.ScriptLocation)

	project := &Project{
		Root:        root,
		IniPath:     iniPath,
		ScriptDir:   scriptDir,
		VersionsDir: resolveVersionsDir(root, scriptDir, config),
	}

	if err := project.validate(); err != nil {
		return nil, err
	}
	return project, nil
}

// Name returns the project's directory name.
func (p *Project) Name() string {
	return filepath.Base(p.Root)
}

func findIniFile(absPath string) (string, error) {
	if filepath.Base(absPath) == "alembic.ini" {
		if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
			return absPath, nil
		}
	}

	currentPath := absPath
	for {
		iniPath := filepath.Join(currentPath, "alembic.ini")
		if info, err := os.Stat(iniPath); err == nil && !info.IsDir() {
			return iniPath, nil
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return "", fmt.Errorf("not an alembic project (no alembic.ini up to mount point): %s", absPath)
		}
		currentPath = parentPath
	}
}

// resolveScriptDir turns the script_location setting into an absolute
// path. Alembic allows "%(here)s" interpolation for the ini directory.
func resolveScriptDir(root, location string) string {
	if location == "" {
		return filepath.Join(root, "alembic")
	}
	location = strings.ReplaceAll(location, "%(here)s", root)
	if !filepath.IsAbs(location) {
		location = filepath.Join(root, location)
	}
	return filepath.Clean(location)
}

func resolveVersionsDir(root, scriptDir string, config *IniConfig) string {
	// version_locations may list several directories; the first one is
	// where new scripts are written, which is the one watched here.
	if config.VersionLocations != "" {
		first := strings.Fields(config.VersionLocations)[0]
		first = strings.ReplaceAll(first, "%(here)s", root)
		if !filepath.IsAbs(first) {
			first = filepath.Join(root, first)
		}
		return filepath.Clean(first)
	}
	return filepath.Join(scriptDir, "versions")
}

func (p *Project) validate() error {
	info, err := os.Stat(p.ScriptDir)
	if err != nil {
		return fmt.Errorf("script_location does not exist: %s", p.ScriptDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("script_location is not a directory: %s", p.ScriptDir)
	}
	if _, err := os.Stat(p.VersionsDir); err != nil {
		return fmt.Errorf("invalid alembic environment, missing versions directory: %s", p.VersionsDir)
	}
	return nil
}

package alembic

import (
	"os"
	"strings"
)

// IniConfig holds the handful of alembic.ini settings the tool needs.
// Only the [alembic] section is read; logger configuration and
// interpolation are ignored.
type IniConfig struct {
	ScriptLocation   string
	VersionLocations string
	SQLAlchemyURL    string
}

// ParseIniFile reads an alembic.ini file.
func ParseIniFile(path string) (*IniConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &IniConfig{}
	parseIni(string(data), config)
	return config, nil
}

func parseIni(data string, config *IniConfig) {
	var currentSection string

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.Trim(line, "[]")
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		if currentSection == "alembic" {
			parseAlembicParam(key, value, config)
		}
	}
}

func parseAlembicParam(key, value string, config *IniConfig) {
	switch key {
	case "script_location":
		config.ScriptLocation = value
	case "version_locations":
		config.VersionLocations = value
	case "sqlalchemy.url":
		config.SQLAlchemyURL = value
	}
}

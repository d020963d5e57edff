package alembic

import "testing"

func TestParseIni(t *testing.T) {
	data := `# alembic configuration
[alembic]
script_location = migrations
version_locations = %(here)s/migrations/versions
sqlalchemy.url = postgresql://localhost/app

; logger config below is ignored
[loggers]
keys = root,sqlalchemy,alembic
`
	config := &IniConfig{}
	parseIni(data, config)

	if config.ScriptLocation != "migrations" {
		t.Fatalf("unexpected script_location: %q", config.ScriptLocation)
	}
	if config.VersionLocations != "%(here)s/migrations/versions" {
		t.Fatalf("unexpected version_locations: %q", config.VersionLocations)
	}
	if config.SQLAlchemyURL != "postgresql://localhost/app" {
		t.Fatalf("unexpected sqlalchemy.url: %q", config.SQLAlchemyURL)
	}
}

func TestParseIniIgnoresOtherSections(t *testing.T) {
	config := &IniConfig{}
	parseIni("[post_write_hooks]\nscript_location = bogus\n", config)
	if config.ScriptLocation != "" {
		t.Fatalf("setting from wrong section applied: %q", config.ScriptLocation)
	}
}

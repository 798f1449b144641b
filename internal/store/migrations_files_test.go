package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
)

var migrationsDir = filepath.Join("..", "..", "db", "migrations")

var migrationName = regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.(up|down)\.sql$`)

func readMigrations(t *testing.T) map[string]map[string]string {
	t.Helper()
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	versions := map[string]map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationName.FindStringSubmatch(entry.Name())
		if match == nil {
			t.Fatalf("unexpected file in migrations dir: %s", entry.Name())
		}
		raw, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if versions[match[1]] == nil {
			versions[match[1]] = map[string]string{}
		}
		versions[match[1]][match[2]] = string(raw)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations discovered")
	}
	return versions
}

func TestMigrationsComeInPairs(t *testing.T) {
	for version, files := range readMigrations(t) {
		if _, ok := files["up"]; !ok {
			t.Errorf("version %s has no up file", version)
		}
		if _, ok := files["down"]; !ok {
			t.Errorf("version %s has no down file", version)
		}
	}
}

func TestMigrationsCreateEverySchemaTable(t *testing.T) {
	var up, down strings.Builder
	for _, files := range readMigrations(t) {
		up.WriteString(files["up"])
		down.WriteString(files["down"])
	}
	schemas := []Schema{CategorySchema, ProjectSchema, PostSchema, TestimonialSchema,
		ExperienceSchema, EducationSchema, SkillSchema, IdeaNodeSchema}
	for _, schema := range schemas {
		if !strings.Contains(up.String(), "CREATE TABLE IF NOT EXISTS "+schema.Table+" (") {
			t.Errorf("no up migration creates %s", schema.Table)
		}
		if !strings.Contains(down.String(), "DROP TABLE IF EXISTS "+schema.Table) {
			t.Errorf("no down migration drops %s", schema.Table)
		}
		for _, column := range schema.Columns {
			if !strings.Contains(up.String(), column) {
				t.Errorf("%s.%s is not declared in any migration", schema.Table, column)
			}
		}
	}
}

func TestApplyMigrationsNeedsUpFiles(t *testing.T) {
	fsys := fstest.MapFS{"0001_init.down.sql": {Data: []byte("DROP TABLE x;")}}
	if _, err := ApplyMigrationsFS(context.Background(), nil, fsys); err == nil {
		t.Fatal("expected an error for a directory without up migrations")
	}
}

package database

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"sql/20260101_000000_create_runs.up.sql":     {Data: []byte("CREATE TABLE test_runs (id TEXT PRIMARY KEY);")},
	"sql/20260101_000000_create_runs.down.sql":   {Data: []byte("DROP TABLE test_runs;")},
	"sql/20260102_000000_create_points.up.sql":   {Data: []byte("CREATE TABLE test_points (name TEXT); CREATE INDEX idx_points ON test_points(name);")},
	"sql/20260102_000000_create_points.down.sql": {Data: []byte("DROP TABLE test_points;")},
	"sql/README.md":                              {Data: []byte("ignored")},
}

// useMigrations swaps the package migration source for the test.
func useMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS, MigrationsDir = fsys, dir
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations, "sql")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "test_runs") || !tableExists(t, db, "test_points") {
		t.Fatal("migrations did not create tables")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Fatalf("applied = %d, pending = %d, want 2/0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied[0] = %+v", applied[0])
	}

	// Second run is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrationStatus_OnlyUpFiles(t *testing.T) {
	useMigrations(t, testMigrations, "sql")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	_, pending, err := db.MigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	for _, m := range pending {
		if strings.Contains(m.UpSQL, "DROP TABLE") {
			t.Errorf("migration %s carries down SQL: %q", m.Version, m.UpSQL)
		}
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	tests := []struct {
		name string
		fsys fs.FS
		dir  string
	}{
		{"nil fs", nil, "."},
		{"missing directory", fstest.MapFS{}, "sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useMigrations(t, tt.fsys, tt.dir)
			db := openTestDB(t)
			defer db.Close() //nolint:errcheck // Test cleanup

			if err := db.Migrate(context.Background()); err != nil {
				t.Errorf("Migrate() error = %v", err)
			}
		})
	}
}

func TestMigrate_FailureStops(t *testing.T) {
	broken := fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE;")},
	}
	useMigrations(t, broken, ".")
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	err := db.Migrate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "20260102_000000") {
		t.Fatalf("Migrate() error = %v, want failure naming the broken migration", err)
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("migration before the failure should stay applied")
	}
}

func TestOpenMigrated(t *testing.T) {
	useMigrations(t, testMigrations, "sql")

	db, err := OpenMigrated(context.Background(), Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if !tableExists(t, db, "test_runs") {
		t.Error("OpenMigrated() did not apply migrations")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"up", "20260301_090000_render_manifest.up.sql", "20260301_090000", true, true},
		{"down", "20260301_090000_render_manifest.down.sql", "20260301_090000", false, true},
		{"not sql", "readme.txt", "", false, false},
		{"missing direction", "20260301_090000_render_manifest.sql", "", false, false},
		{"no version", "manifest.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_render_manifest.up.sql", "render_manifest"},
		{"20260301_090000_entities.down.sql", "entities"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

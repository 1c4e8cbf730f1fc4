package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_create_drops.up.sql",
		"000001_create_drops.down.sql",
		"000003_admin_audit.up.sql",
		"README.md",
		"0002-bad-name.sql",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000009_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	if got := findLatestMigrationVersion(dir); got != 3 {
		t.Errorf("latest = %d, want 3", got)
	}
	if got := findLatestMigrationVersion(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("missing dir latest = %d, want 0", got)
	}
}

func TestRunMigrationsRequiresURL(t *testing.T) {
	if err := RunMigrations("", "migrations"); err == nil {
		t.Error("expected error for empty database URL")
	}
}

package db

import (
	"testing"
	"testing/fstest"
)

func TestMigrations_EmbeddedAreOrdered(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].Filename, migrations[i].Filename)
		}
	}
	for _, m := range migrations {
		if len(m.Checksum) != 64 {
			t.Errorf("%s: expected sha256 hex checksum, got %q", m.Filename, m.Checksum)
		}
	}
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/README.md":      {Data: []byte("ignored")},
	}
	got, err := loadMigrations(fsys, "m")
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(got))
	}
	if got[0].Version != "001" || got[1].Version != "002" {
		t.Errorf("unexpected order: %s, %s", got[0].Version, got[1].Version)
	}
	if got[0].SQL != "SELECT 1;" {
		t.Errorf("unexpected SQL %q", got[0].SQL)
	}
}

func TestLoadMigrations_RejectsDuplicatesAndUnversioned(t *testing.T) {
	dup := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := loadMigrations(dup, "m"); err == nil {
		t.Error("expected duplicate version error")
	}

	bad := fstest.MapFS{"m/init.sql": {Data: []byte("SELECT 1;")}}
	if _, err := loadMigrations(bad, "m"); err == nil {
		t.Error("expected missing version error")
	}
}

package symbolstore

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "symbols.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RecordBuildAndLoadSqueezeMap(t *testing.T) {
	store := openTemp(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := store.RecordBuild(Build{ProjectKey: "app", Timestamp: base, FileCount: 2},
		map[string]string{"N$0": "N$f_jump_to", "N$1": "N$f_run_fast"}, nil)
	if err != nil {
		t.Fatalf("record first build: %v", err)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Fatalf("expected generated uuid, got %q", first.ID)
	}

	// N$f_jump_to moved to a new short name; N$1 was reassigned.
	if _, err := store.RecordBuild(Build{ProjectKey: "app", Timestamp: base.Add(time.Minute)},
		map[string]string{"N$2": "N$f_jump_to", "N$1": "N$f_walk"}, nil); err != nil {
		t.Fatalf("record second build: %v", err)
	}

	got, err := store.LoadSqueezeMap("app")
	if err != nil {
		t.Fatalf("load squeeze map: %v", err)
	}
	want := map[string]string{"N$1": "N$f_walk", "N$2": "N$f_jump_to"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for short, long := range want {
		if got[short] != long {
			t.Fatalf("expected %s=%s, got %v", short, long, got)
		}
	}

	other, err := store.LoadSqueezeMap("other")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Fatalf("expected projects to be isolated, got %v", other)
	}
}

func TestStore_Symbolicate(t *testing.T) {
	store := openTemp(t)
	if _, err := store.RecordBuild(Build{}, map[string]string{"N$0": "N$f_moveTo_to"}, nil); err != nil {
		t.Fatal(err)
	}
	got, err := store.Symbolicate("", "TypeError: p.N$0 is not a function at N$f_init_x_y")
	if err != nil {
		t.Fatal(err)
	}
	want := "TypeError: p.moveTo(to:) is not a function at init(x:y:)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestStore_BuildsAndFunctionLines(t *testing.T) {
	store := openTemp(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lines := []FunctionLine{
		{Path: "point.ns", Line: 2, Signature: "Point.moveTo(to:)"},
		{Path: "point.ns", Line: 5},
		{Path: "other.ns", Line: 1, Signature: "helper"},
	}
	older, err := store.RecordBuild(Build{Timestamp: base, OutputPath: "out.js", FileCount: 2, WarningCount: 1}, nil, lines)
	if err != nil {
		t.Fatal(err)
	}
	newer, err := store.RecordBuild(Build{Timestamp: base.Add(time.Hour), ErrorCount: 3}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	latest, ok, err := store.LatestBuild("")
	if err != nil || !ok {
		t.Fatalf("latest build: ok=%v err=%v", ok, err)
	}
	if latest.ID != newer.ID || latest.ErrorCount != 3 {
		t.Fatalf("expected newest build, got %+v", latest)
	}

	builds, err := store.Builds("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(builds) != 2 || builds[1].ID != older.ID || builds[1].OutputPath != "out.js" {
		t.Fatalf("unexpected builds: %+v", builds)
	}
	if !builds[1].Timestamp.Equal(base) {
		t.Fatalf("expected timestamp to roundtrip, got %v", builds[1].Timestamp)
	}

	got, err := store.FunctionLines(older.ID, "point.ns")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Signature != "Point.moveTo(to:)" || got[1].Signature != "" {
		t.Fatalf("unexpected function lines: %+v", got)
	}
	if s := SignatureAt(got, 3); s != "Point.moveTo(to:)" {
		t.Fatalf("expected signature at line 3, got %q", s)
	}
	if s := SignatureAt(got, 1); s != "" {
		t.Fatalf("expected no signature at line 1, got %q", s)
	}
	if s := SignatureAt(got, 9); s != "" {
		t.Fatalf("expected no signature after the function, got %q", s)
	}
}

func TestStore_Prune(t *testing.T) {
	store := openTemp(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if _, err := store.RecordBuild(Build{Timestamp: base.Add(time.Duration(i) * time.Minute)}, nil,
			[]FunctionLine{{Path: "a.ns", Line: 1, Signature: "f"}}); err != nil {
			t.Fatal(err)
		}
	}
	deleted, err := store.Prune("", 1)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 pruned builds, got %d", deleted)
	}
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM function_lines`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected cascade to leave 1 function line, got %d", count)
	}
	if _, err := store.Prune("", 0); err == nil {
		t.Fatal("expected error when keeping no builds")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	if !IsCorruptError(err) && !strings.Contains(strings.ToLower(err.Error()), "schema") {
		t.Fatalf("expected corrupt/schema error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

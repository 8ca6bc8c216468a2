package store

import (
	"database/sql"
	"errors"
	"io"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lox/qtwsa/internal/dataset"
	"github.com/lox/qtwsa/internal/logging"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db, logging.Discard())
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}

	// Migrate is idempotent.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestPutAndOpenAsset(t *testing.T) {
	store := setupTestStore(t)
	content := []byte("COMID,GAGEID\n7060710,01013500\n")

	changed, err := store.PutAsset("global_gauges_models.csv", content)
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if !changed {
		t.Error("first PutAsset should report a change")
	}

	rc, err := store.Open("global_gauges_models.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content = %q, want %q", got, content)
	}

	changed, err = store.PutAsset("global_gauges_models.csv", content)
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if changed {
		t.Error("identical content should not report a change")
	}

	changed, err = store.PutAsset("global_gauges_models.csv", []byte("COMID,GAGEID\n"))
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if !changed {
		t.Error("new content should report a change")
	}
}

func TestOpen_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Open("missing.csv")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestListAssets(t *testing.T) {
	store := setupTestStore(t)
	for _, name := range []string{"b.csv", "a.csv"} {
		if _, err := store.PutAsset(name, []byte(name)); err != nil {
			t.Fatalf("PutAsset: %v", err)
		}
	}

	assets, err := store.ListAssets()
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("len(assets) = %d, want 2", len(assets))
	}
	if assets[0].Name != "a.csv" || assets[0].Size != 5 {
		t.Errorf("assets[0] = %+v, want a.csv of 5 bytes", assets[0])
	}
	if len(assets[0].SHA256) != 64 {
		t.Errorf("SHA256 = %q, want hex digest", assets[0].SHA256)
	}
	if assets[0].ImportedAt.IsZero() {
		t.Error("ImportedAt not set")
	}
}

func TestImport(t *testing.T) {
	store := setupTestStore(t)
	src := dataset.MemSource{
		"dates.csv":  []byte(",datetime\n0,2002-04-15\n"),
		"models.csv": []byte("COMID,GAGEID\n1,1001\n"),
	}

	run, err := store.Import(src, "memory", src.Names())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !run.Success || run.AssetsImported.Int64 != 2 {
		t.Errorf("run = %+v, want success with 2 imported", run)
	}

	run, err = store.Import(src, "memory", src.Names())
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if run.AssetsImported.Int64 != 0 || run.AssetsUnchanged.Int64 != 2 {
		t.Errorf("run = %+v, want 2 unchanged", run)
	}

	latest, err := store.LatestImportRun()
	if err != nil {
		t.Fatalf("LatestImportRun: %v", err)
	}
	if latest == nil || latest.ID != run.ID || !latest.FinishedAt.Valid {
		t.Errorf("latest = %+v, want run %d finished", latest, run.ID)
	}
}

func TestImport_MissingAssetFailsRun(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.Import(dataset.MemSource{}, "memory", []string{"missing.csv"})
	if err == nil {
		t.Fatal("expected error")
	}
	if run == nil || run.Success || !run.ErrorMessage.Valid {
		t.Errorf("run = %+v, want failed run with message", run)
	}
}

func TestImport_FailureLeavesBundleUnchanged(t *testing.T) {
	store := setupTestStore(t)
	names := []string{"a.csv", "b.csv"}

	v1 := dataset.MemSource{"a.csv": []byte("v1-a"), "b.csv": []byte("v1-b")}
	if _, err := store.Import(v1, "v1", names); err != nil {
		t.Fatalf("Import v1: %v", err)
	}

	v2 := dataset.MemSource{"a.csv": []byte("v2-a")}
	run, err := store.Import(v2, "v2", names)
	if err == nil {
		t.Fatal("expected error for missing b.csv")
	}
	if run.Success || run.AssetsImported.Int64 != 0 {
		t.Errorf("run = %+v, want failed run with nothing imported", run)
	}

	for name, want := range map[string]string{"a.csv": "v1-a", "b.csv": "v1-b"} {
		rc, err := store.Open(name)
		if err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestLatestImportRun_None(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.LatestImportRun()
	if err != nil {
		t.Fatalf("LatestImportRun: %v", err)
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

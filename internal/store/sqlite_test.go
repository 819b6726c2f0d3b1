package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/schema"
)

func TestGenerateDDL(t *testing.T) {
	place, _ := schema.Default().Lookup("Place")
	ddl := GenerateDDL(place)

	if !strings.Contains(ddl, `CREATE TABLE IF NOT EXISTS "Place"`) {
		t.Errorf("DDL should contain table name: %s", ddl)
	}

	expectations := []string{
		`"id" TEXT PRIMARY KEY`,
		`"created_at" TEXT`,
		`"name" TEXT`,
		`"number_rooms" INTEGER`,
		`"latitude" REAL`,
		`"amenity_ids" TEXT`, // list stored as JSON text
		`"extra" TEXT`,
	}
	for _, expected := range expectations {
		if !strings.Contains(ddl, expected) {
			t.Errorf("DDL should contain %q: %s", expected, ddl)
		}
	}
}

func TestGenerateIndexDDL(t *testing.T) {
	ddl := GenerateIndexDDL("City", "state_id")

	expected := `CREATE INDEX IF NOT EXISTS "idx_City_state_id" ON "City"("state_id")`
	if ddl != expected {
		t.Errorf("GenerateIndexDDL = %q, want %q", ddl, expected)
	}
}

func TestExportSQLite(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)
	s.Create("Place", nil)
	s.Create("Place", nil)
	s.Update("User", "id-1", "first_name", literal.String("Ana"))
	s.Update("User", "id-1", "nickname", literal.String("an"))
	s.Update("Place", "id-2", "number_rooms", literal.Int(4))
	s.Update("Place", "id-2", "amenity_ids", literal.Strings("wifi"))

	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	n, err := s.ExportSQLite(dbPath)
	if err != nil {
		t.Fatalf("ExportSQLite() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ExportSQLite() = %d, want 3", n)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer db.Close()

	var places int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "Place"`).Scan(&places); err != nil {
		t.Fatalf("counting places: %v", err)
	}
	if places != 2 {
		t.Errorf("Place rows = %d, want 2", places)
	}

	var rooms int
	var amenities string
	err = db.QueryRow(`SELECT number_rooms, amenity_ids FROM "Place" WHERE id = ?`, "id-2").Scan(&rooms, &amenities)
	if err != nil {
		t.Fatalf("reading place: %v", err)
	}
	if rooms != 4 {
		t.Errorf("number_rooms = %d, want 4", rooms)
	}
	if amenities != `["wifi"]` {
		t.Errorf("amenity_ids = %s, want [\"wifi\"]", amenities)
	}

	var firstName string
	var extra sql.NullString
	err = db.QueryRow(`SELECT first_name, extra FROM "User" WHERE id = ?`, "id-1").Scan(&firstName, &extra)
	if err != nil {
		t.Fatalf("reading user: %v", err)
	}
	if firstName != "Ana" {
		t.Errorf("first_name = %q, want Ana", firstName)
	}
	var extraFields map[string]any
	if err := json.Unmarshal([]byte(extra.String), &extraFields); err != nil {
		t.Fatalf("extra is not JSON: %v (%q)", err, extra.String)
	}
	if extraFields["nickname"] != "an" {
		t.Errorf("extra = %v, want nickname", extraFields)
	}

	hash, err := GetMeta(db, MetaSourceHash)
	if err != nil {
		t.Fatalf("GetMeta() error = %v", err)
	}
	want, _ := ComputeFileHash(s.Path())
	if hash != want {
		t.Errorf("source hash = %s, want %s", hash, want)
	}
	if missing, _ := GetMeta(db, "nope"); missing != "" {
		t.Errorf("GetMeta(nope) = %q, want empty", missing)
	}
}

func TestExportSQLite_ReplacesExistingSnapshot(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)

	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	if _, err := s.ExportSQLite(dbPath); err != nil {
		t.Fatalf("first export: %v", err)
	}
	s.Delete("User", "id-1")
	if _, err := s.ExportSQLite(dbPath); err != nil {
		t.Fatalf("second export: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var users int
	db.QueryRow(`SELECT COUNT(*) FROM "User"`).Scan(&users)
	if users != 0 {
		t.Errorf("User rows = %d, want 0", users)
	}
}

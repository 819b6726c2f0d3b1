package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/record"
	"github.com/matsen/hbnb/internal/schema"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Meta keys written by ExportSQLite.
const (
	MetaSourceHash = "source_hash"
	MetaExportedAt = "exported_at"
)

// ExtraColumn holds the JSON object of fields a record has beyond its
// type's declared defaults.
const ExtraColumn = "extra"

// openExportDB opens a SQLite database for a snapshot.
func openExportDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	return db, nil
}

// ExportSQLite writes a snapshot of every record into a fresh SQLite
// database at path, one table per schema type. It returns the number of
// records written. An existing file at path is replaced.
func (s *Store) ExportSQLite(path string) (int, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("removing old snapshot: %w", err)
	}

	db, err := openExportDB(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := s.createTables(db); err != nil {
		return 0, fmt.Errorf("creating tables: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for i, key := range s.keys {
		r := s.objects[key]
		t, ok := s.schema.Lookup(r.Type)
		if !ok {
			continue
		}
		if err := insertRecord(tx, t, r); err != nil {
			return 0, fmt.Errorf("inserting record %d (%s): %w", i+1, key, err)
		}
	}

	hash, err := ComputeFileHash(s.path)
	if err != nil {
		return 0, fmt.Errorf("computing hash: %w", err)
	}
	if err := SetMeta(tx, MetaSourceHash, hash); err != nil {
		return 0, fmt.Errorf("updating hash: %w", err)
	}
	if err := SetMeta(tx, MetaExportedAt, s.now().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("updating export time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing snapshot: %w", err)
	}

	s.logger.Debug("exported snapshot", zap.String("path", path), zap.Int("records", len(s.keys)))
	return len(s.keys), nil
}

// createTables creates one table per type, reference indexes and the meta table.
func (s *Store) createTables(db *sql.DB) error {
	for _, t := range s.schema.Types {
		if _, err := db.Exec(GenerateDDL(t)); err != nil {
			return fmt.Errorf("creating table %s: %w", t.Name, err)
		}
		for _, f := range t.Fields {
			if strings.HasSuffix(f.Name, "_id") {
				if _, err := db.Exec(GenerateIndexDDL(t.Name, f.Name)); err != nil {
					return fmt.Errorf("creating index for %s.%s: %w", t.Name, f.Name, err)
				}
			}
		}
	}

	if _, err := db.Exec(GenerateMetaTableDDL()); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}
	return nil
}

// GenerateDDL generates a CREATE TABLE statement for a type.
func GenerateDDL(t *schema.Type) string {
	cols := []string{
		quoteIdent(record.FieldID) + " TEXT PRIMARY KEY",
		quoteIdent(record.FieldCreatedAt) + " TEXT",
		quoteIdent(record.FieldUpdatedAt) + " TEXT",
	}
	for _, f := range t.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(f.Name), sqliteType(f.Type)))
	}
	cols = append(cols, quoteIdent(ExtraColumn)+" TEXT")

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quoteIdent(t.Name),
		strings.Join(cols, ",\n  "))
}

// GenerateIndexDDL generates a CREATE INDEX statement for a field.
func GenerateIndexDDL(tableName, fieldName string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		quoteIdent("idx_"+tableName+"_"+fieldName), quoteIdent(tableName), quoteIdent(fieldName))
}

// GenerateMetaTableDDL generates the _meta table DDL.
func GenerateMetaTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS _meta (
  key TEXT PRIMARY KEY,
  value TEXT
)`
}

// sqliteType maps FieldType to SQLite type.
func sqliteType(ft schema.FieldType) string {
	switch ft {
	case schema.FieldTypeInteger, schema.FieldTypeBoolean:
		return "INTEGER"
	case schema.FieldTypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// insertRecord inserts a single record into its type's table.
func insertRecord(tx *sql.Tx, t *schema.Type, r *record.Record) error {
	cols := []string{
		quoteIdent(record.FieldID),
		quoteIdent(record.FieldCreatedAt),
		quoteIdent(record.FieldUpdatedAt),
	}
	values := []any{r.ID, record.FormatTime(r.CreatedAt), record.FormatTime(r.UpdatedAt)}

	declared := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		declared[f.Name] = true
		v, ok := r.Fields.Get(f.Name)
		if !ok {
			v, _ = t.Default(f.Name)
		}
		sqlValue, err := convertValueForSQLite(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		cols = append(cols, quoteIdent(f.Name))
		values = append(values, sqlValue)
	}

	extra := literal.NewMap()
	r.Fields.Range(func(k string, v literal.Value) bool {
		if !declared[k] {
			extra.Set(k, v)
		}
		return true
	})
	var extraValue any
	if extra.Len() > 0 {
		data, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encoding extra fields: %w", err)
		}
		extraValue = string(data)
	}
	cols = append(cols, quoteIdent(ExtraColumn))
	values = append(values, extraValue)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), placeholders)

	_, err := tx.Exec(stmt, values...)
	return err
}

// convertValueForSQLite converts a field value to a SQLite-compatible value.
// Lists and mappings are stored as JSON text.
func convertValueForSQLite(v literal.Value) (any, error) {
	switch v.Kind() {
	case literal.KindNull:
		return nil, nil
	case literal.KindBool:
		b, _ := v.AsBool()
		if b {
			return 1, nil
		}
		return 0, nil
	case literal.KindInt:
		i, _ := v.AsInt()
		return i, nil
	case literal.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case literal.KindString:
		s, _ := v.AsString()
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

// SetMeta stores a value in the _meta table.
func SetMeta(db execer, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// GetMeta retrieves a value from the _meta table; a missing key yields "".
func GetMeta(db queryRower, key string) (string, error) {
	var value sql.NullString
	err := db.QueryRow("SELECT value FROM _meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

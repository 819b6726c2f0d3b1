package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/record"
	"go.uber.org/zap"
)

// Persist writes every record to the backing file as one JSON object keyed
// by "<Type>.<id>", replacing the file atomically.
func (s *Store) Persist() error {
	top := literal.NewMap()
	for _, key := range s.keys {
		top.Set(key, literal.MapValue(s.objects[key].ToMap()))
	}

	data, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("persisting store failed", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("persisting store: %w", err)
	}
	return nil
}

// Load replaces the in-memory table with the contents of the backing file.
//
// A missing, unreadable or malformed file leaves the store empty and the
// file untouched. Entries that do not decode to a record of a known type
// are skipped.
func (s *Store) Load() {
	s.keys = nil
	s.objects = make(map[string]*record.Record)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("backing file not found, starting empty", zap.String("path", s.path))
		} else {
			s.logger.Debug("backing file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	top, err := decodeTop(data)
	if err != nil {
		s.logger.Debug("backing file malformed, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	now := s.now()
	top.Range(func(key string, v literal.Value) bool {
		entry, ok := v.AsMap()
		if !ok {
			s.logger.Warn("skipping non-object entry", zap.String("key", key))
			return true
		}
		r, err := record.FromMap(entry, now)
		if err != nil {
			s.logger.Warn("skipping entry", zap.String("key", key), zap.Error(err))
			return true
		}
		if !s.schema.Has(r.Type) {
			s.logger.Warn("skipping entry of unknown type", zap.String("key", key), zap.String("type", r.Type))
			return true
		}
		if r.Key() != key {
			s.logger.Warn("entry key does not match its record", zap.String("key", key), zap.String("record", r.Key()))
		}
		s.insert(r)
		return true
	})

	s.logger.Debug("loaded backing file", zap.String("path", s.path), zap.Int("records", len(s.keys)))
}

// decodeTop decodes a document that must be exactly one JSON object.
func decodeTop(data []byte) (*literal.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := literal.DecodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after top-level object")
	}

	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("top-level value is %s, want object", v.Kind())
	}
	return m, nil
}

// writeFileAtomic writes data to path via a temp file in the same directory
// and a rename, so a crash never leaves a truncated file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on error
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// ComputeFileHash computes a SHA256 hash of a file's contents. A missing
// file hashes as empty.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

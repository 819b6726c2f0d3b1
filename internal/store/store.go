// Package store keeps the authoritative in-memory table of records and
// persists it to a JSON backing file.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/record"
	"github.com/matsen/hbnb/internal/schema"
	"go.uber.org/zap"
)

// DefaultFile is the backing file used when no path is configured.
const DefaultFile = "file.json"

var (
	// ErrNotFound is returned when no record has the requested type and id.
	ErrNotFound = errors.New("no instance found")
	// ErrUnknownType is returned when a type is not declared in the schema.
	ErrUnknownType = errors.New("unknown type")
	// ErrReadOnlyField is returned when an update names an identity field.
	ErrReadOnlyField = errors.New("read-only field")
)

// Store is the table of records keyed by "<Type>.<id>", in insertion order.
// A Store is not safe for concurrent use.
type Store struct {
	path   string
	schema *schema.Schema
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	keys    []string
	objects map[string]*record.Record
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and persist diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty Store backed by the file at path. Call Load to read
// existing records.
func New(path string, sch *schema.Schema, opts ...Option) *Store {
	if path == "" {
		path = DefaultFile
	}
	s := &Store{
		path:    path,
		schema:  sch,
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		objects: make(map[string]*record.Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a Store and loads the backing file.
func Open(path string, sch *schema.Schema, opts ...Option) *Store {
	s := New(path, sch, opts...)
	s.Load()
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Schema returns the type table the store validates against.
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.keys)
}

// Keys returns every "<Type>.<id>" key in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []*record.Record {
	out := make([]*record.Record, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.objects[key].Clone())
	}
	return out
}

// Filter returns a copy of every record of one type in insertion order.
func (s *Store) Filter(typeName string) []*record.Record {
	var out []*record.Record
	for _, key := range s.keys {
		if r := s.objects[key]; r.Type == typeName {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Count returns the number of records of one type.
func (s *Store) Count(typeName string) int {
	n := 0
	for _, key := range s.keys {
		if s.objects[key].Type == typeName {
			n++
		}
	}
	return n
}

// Get returns a copy of the record with the given type and id.
func (s *Store) Get(typeName, id string) (*record.Record, bool) {
	r, ok := s.objects[record.Key(typeName, id)]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Create registers a new record with a fresh id and persists the store.
// Reserved names in initial are ignored. If persisting fails the record
// stays registered in memory and is returned along with the error.
func (s *Store) Create(typeName string, initial *literal.Map) (*record.Record, error) {
	if !s.schema.Has(typeName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}

	id := s.newID()
	for s.objects[record.Key(typeName, id)] != nil {
		id = s.newID()
	}

	r := record.New(typeName, id, s.tick(time.Time{}))
	initial.Range(func(k string, v literal.Value) bool {
		if !record.IsReserved(k) {
			r.Fields.Set(k, v.Clone())
		}
		return true
	})

	s.insert(r)
	s.logger.Debug("created record", zap.String("key", r.Key()))

	return r.Clone(), s.Persist()
}

// Update sets one field on a record and persists the store.
//
// The value is coerced to the kind of the record's current value for that
// field, or to the kind of the schema default when the record has none.
// When coercion is impossible the value is stored as given.
func (s *Store) Update(typeName, id, field string, value literal.Value) error {
	r, ok := s.objects[record.Key(typeName, id)]
	if !ok {
		return ErrNotFound
	}
	if record.IsReserved(field) {
		return fmt.Errorf("%w: %q", ErrReadOnlyField, field)
	}

	r.Fields.Set(field, s.coerce(r, field, value))
	r.UpdatedAt = s.tick(r.UpdatedAt)
	s.logger.Debug("updated record", zap.String("key", r.Key()), zap.String("field", field))

	return s.Persist()
}

// Delete removes a record and persists the store.
func (s *Store) Delete(typeName, id string) error {
	key := record.Key(typeName, id)
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}

	delete(s.objects, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	s.logger.Debug("deleted record", zap.String("key", key))

	return s.Persist()
}

func (s *Store) insert(r *record.Record) {
	key := r.Key()
	if _, exists := s.objects[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.objects[key] = r
}

func (s *Store) coerce(r *record.Record, field string, value literal.Value) literal.Value {
	current, ok := r.Fields.Get(field)
	if !ok {
		if t, found := s.schema.Lookup(r.Type); found {
			current, ok = t.Default(field)
		}
	}
	if !ok || current.IsNull() {
		return value
	}
	if coerced, ok := literal.Coerce(value, current.Kind()); ok {
		return coerced
	}
	return value
}

// tick returns the current time at microsecond precision, strictly after prev.
func (s *Store) tick(prev time.Time) time.Time {
	now := s.now().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

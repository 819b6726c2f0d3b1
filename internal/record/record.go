// Package record defines the typed, timestamped field bag persisted by the store.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/hbnb/internal/literal"
)

// Names that are part of a record's identity rather than its field bag.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldClass     = "__class__"
)

// TimeLayout is the ISO 8601 form used for timestamps: UTC, microsecond
// precision, no zone.
const TimeLayout = "2006-01-02T15:04:05.000000"

// Record is one entity of a schema type.
type Record struct {
	Type      string
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    *literal.Map
}

// New returns a record with both timestamps set to now.
func New(typeName, id string, now time.Time) *Record {
	return &Record{
		Type:      typeName,
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    literal.NewMap(),
	}
}

// Key builds the "<Type>.<id>" key a record is stored under.
func Key(typeName, id string) string {
	return typeName + "." + id
}

// IsReserved reports whether name is an identity field that cannot be
// stored in the field bag.
func IsReserved(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldUpdatedAt, FieldClass:
		return true
	}
	return false
}

// Key returns the record's store key.
func (r *Record) Key() string {
	return Key(r.Type, r.ID)
}

// Attributes returns every attribute of the record as a mapping: id,
// created_at and updated_at first, then the dynamic fields in insertion order.
func (r *Record) Attributes() *literal.Map {
	m := literal.NewMap()
	m.Set(FieldID, literal.String(r.ID))
	m.Set(FieldCreatedAt, literal.String(FormatTime(r.CreatedAt)))
	m.Set(FieldUpdatedAt, literal.String(FormatTime(r.UpdatedAt)))
	r.Fields.Range(func(k string, v literal.Value) bool {
		m.Set(k, v)
		return true
	})
	return m
}

// String renders the record as "[<Type>] (<id>) {<attributes>}".
func (r *Record) String() string {
	return fmt.Sprintf("[%s] (%s) %s", r.Type, r.ID, r.Attributes().Repr())
}

// ToMap returns the serialized form: every attribute plus __class__.
func (r *Record) ToMap() *literal.Map {
	m := r.Attributes()
	m.Set(FieldClass, literal.String(r.Type))
	return m
}

// MarshalJSON encodes the serialized form.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

// Errors returned by FromMap.
var (
	ErrMissingClass = errors.New("missing __class__")
	ErrMissingID    = errors.New("missing id")
)

// FromMap rebuilds a record from its serialized form. Timestamps that
// cannot be parsed are replaced by now.
func FromMap(m *literal.Map, now time.Time) (*Record, error) {
	classVal, _ := m.Get(FieldClass)
	typeName, ok := classVal.AsString()
	if !ok || typeName == "" {
		return nil, ErrMissingClass
	}
	idVal, _ := m.Get(FieldID)
	id, ok := idVal.AsString()
	if !ok || id == "" {
		return nil, ErrMissingID
	}

	r := New(typeName, id, now)
	r.CreatedAt = timeField(m, FieldCreatedAt, now)
	r.UpdatedAt = timeField(m, FieldUpdatedAt, now)
	if r.UpdatedAt.Before(r.CreatedAt) {
		r.UpdatedAt = r.CreatedAt
	}

	m.Range(func(k string, v literal.Value) bool {
		if !IsReserved(k) {
			r.Fields.Set(k, v)
		}
		return true
	})
	return r, nil
}

func timeField(m *literal.Map, name string, fallback time.Time) time.Time {
	v, _ := m.Get(name)
	s, ok := v.AsString()
	if !ok {
		return fallback
	}
	t, err := ParseTime(s)
	if err != nil {
		return fallback
	}
	return t
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	return &Record{
		Type:      r.Type,
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Fields:    r.Fields.Clone(),
	}
}

// FormatTime renders t with TimeLayout in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout (with or without the fraction), read as UTC,
// and RFC 3339. The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	// Parsing accepts a fractional second even though the layout omits it.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

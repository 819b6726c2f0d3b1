package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matsen/hbnb/internal/literal"
	"github.com/matsen/hbnb/internal/schema"
)

// setupTestStore creates an empty store in a temp directory with
// predictable ids.
func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.json")
	n := 0
	ids := WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	return New(path, schema.Default(), append([]Option{ids}, opts...)...)
}

func TestNew_DefaultPath(t *testing.T) {
	s := New("", schema.Default())
	if s.Path() != DefaultFile {
		t.Errorf("Path() = %q, want %q", s.Path(), DefaultFile)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestCreateAndGet(t *testing.T) {
	s := setupTestStore(t)

	initial := literal.NewMap()
	initial.Set("name", literal.String("Loft"))
	initial.Set("id", literal.String("ignored"))

	r, err := s.Create("Place", initial)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if r.ID != "id-1" || r.Type != "Place" {
		t.Errorf("Create() = %s/%s, want Place/id-1", r.Type, r.ID)
	}
	if !r.CreatedAt.Equal(r.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", r.CreatedAt, r.UpdatedAt)
	}

	got, ok := s.Get("Place", "id-1")
	if !ok {
		t.Fatal("Get() not found")
	}
	if v, _ := got.Fields.Get("name"); !v.Equal(literal.String("Loft")) {
		t.Errorf("name = %s, want 'Loft'", v.Repr())
	}
	if _, ok := got.Fields.Get("id"); ok {
		t.Error("reserved initial field should be ignored")
	}

	if _, ok := s.Get("User", "id-1"); ok {
		t.Error("Get() with wrong type should be absent")
	}
	if _, ok := s.Get("Place", "nope"); ok {
		t.Error("Get() with unknown id should be absent")
	}
}

func TestCreate_UnknownType(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Create("Spaceship", nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Create(Spaceship) error = %v, want ErrUnknownType", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestCreate_RandomIDsAreUnique(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "file.json"), schema.Default())
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		r, err := s.Create("BaseModel", nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)

	r, _ := s.Get("User", "id-1")
	r.Fields.Set("email", literal.String("mutated"))

	again, _ := s.Get("User", "id-1")
	if _, ok := again.Fields.Get("email"); ok {
		t.Error("mutating a returned record changed the store")
	}
}

func TestUpdate(t *testing.T) {
	s := setupTestStore(t)
	created, _ := s.Create("User", nil)

	if err := s.Update("User", "id-1", "first_name", literal.String("Ana")); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	r, _ := s.Get("User", "id-1")
	if v, _ := r.Fields.Get("first_name"); !v.Equal(literal.String("Ana")) {
		t.Errorf("first_name = %s, want 'Ana'", v.Repr())
	}
	if !r.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", r.UpdatedAt, created.UpdatedAt)
	}
	if !r.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt changed on update")
	}
}

func TestUpdate_StrictlyIncreasesWithFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	s := setupTestStore(t, WithClock(func() time.Time { return frozen }))
	s.Create("User", nil)

	prev, _ := s.Get("User", "id-1")
	for i := 0; i < 3; i++ {
		if err := s.Update("User", "id-1", "email", literal.String("x")); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		r, _ := s.Get("User", "id-1")
		if !r.UpdatedAt.After(prev.UpdatedAt) {
			t.Fatalf("update %d: UpdatedAt %v not after %v", i, r.UpdatedAt, prev.UpdatedAt)
		}
		prev = r
	}
}

func TestUpdate_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value literal.Value
		want  literal.Value
	}{
		{"string to schema integer", "number_rooms", literal.String("4"), literal.Int(4)},
		{"int to schema float", "latitude", literal.Int(3), literal.Float(3)},
		{"int to schema string", "name", literal.Int(12), literal.String("12")},
		{"failed coercion keeps raw value", "max_guest", literal.String("lots"), literal.String("lots")},
		{"list to schema list", "amenity_ids", literal.Strings("a"), literal.Strings("a")},
		{"dynamic field kept as given", "pets", literal.Float(1.5), literal.Float(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			s.Create("Place", nil)

			if err := s.Update("Place", "id-1", tt.field, tt.value); err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			r, _ := s.Get("Place", "id-1")
			got, _ := r.Fields.Get(tt.field)
			if !got.Equal(tt.want) {
				t.Errorf("%s = %s (%s), want %s (%s)", tt.field, got.Repr(), got.Kind(), tt.want.Repr(), tt.want.Kind())
			}
		})
	}
}

func TestUpdate_CoercesToExistingFieldKind(t *testing.T) {
	s := setupTestStore(t)
	s.Create("BaseModel", nil)

	s.Update("BaseModel", "id-1", "score", literal.Int(1))
	s.Update("BaseModel", "id-1", "score", literal.String("7"))

	r, _ := s.Get("BaseModel", "id-1")
	if v, _ := r.Fields.Get("score"); !v.Equal(literal.Int(7)) {
		t.Errorf("score = %s (%s), want 7", v.Repr(), v.Kind())
	}
}

func TestUpdate_Errors(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)

	if err := s.Update("User", "missing", "email", literal.String("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Update("Place", "id-1", "email", literal.String("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(wrong type) error = %v, want ErrNotFound", err)
	}
	for _, field := range []string{"id", "created_at", "updated_at", "__class__"} {
		if err := s.Update("User", "id-1", field, literal.String("x")); !errors.Is(err, ErrReadOnlyField) {
			t.Errorf("Update(%s) error = %v, want ErrReadOnlyField", field, err)
		}
	}

	r, _ := s.Get("User", "id-1")
	if r.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", r.ID)
	}
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)
	s.Create("User", nil)

	if err := s.Delete("User", "id-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := s.Get("User", "id-1"); ok {
		t.Error("record still present after Delete")
	}
	if s.Count("User") != 1 {
		t.Errorf("Count(User) = %d, want 1", s.Count("User"))
	}
	if err := s.Delete("User", "id-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestAllFilterCount_InsertionOrder(t *testing.T) {
	s := setupTestStore(t)
	s.Create("User", nil)
	s.Create("Place", nil)
	s.Create("User", nil)
	s.Create("City", nil)

	wantKeys := []string{"User.id-1", "Place.id-2", "User.id-3", "City.id-4"}
	keys := s.Keys()
	for i := range wantKeys {
		if keys[i] != wantKeys[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], wantKeys[i])
		}
	}

	all := s.All()
	if len(all) != 4 || all[2].ID != "id-3" {
		t.Errorf("All() order wrong: %v", keys)
	}

	users := s.Filter("User")
	if len(users) != 2 || users[0].ID != "id-1" || users[1].ID != "id-3" {
		t.Errorf("Filter(User) = %d records", len(users))
	}

	counts := map[string]int{"User": 2, "Place": 1, "City": 1, "Review": 0, "Nope": 0}
	for typeName, want := range counts {
		if got := s.Count(typeName); got != want {
			t.Errorf("Count(%s) = %d, want %d", typeName, got, want)
		}
	}
}

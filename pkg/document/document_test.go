package document

import (
	"strings"
	"testing"
)

func TestMap_Set_PreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("b", int64(1))
	m.Set("a", int64(2))
	m.Set("c", int64(3))

	keys := m.Keys()
	if len(keys) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(keys))
	}
	if got := strings.Join(keys, ","); got != "b,a,c" {
		t.Errorf("Expected keys b,a,c, got %s", got)
	}
}

func TestMap_Set_ReassignKeepsPosition(t *testing.T) {
	m := NewMap()
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	m.Set("a", int64(9))

	keys := m.Keys()
	if got := strings.Join(keys, ","); got != "a,b" {
		t.Errorf("Expected keys a,b after reassignment, got %s", got)
	}
	v, ok := m.Get("a")
	if !ok {
		t.Fatalf("Expected key a to be present")
	}
	if v != int64(9) {
		t.Errorf("Expected a=9 after reassignment, got %v", v)
	}
}

func TestMap_Delete_PreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	m.Set("c", int64(3))

	if !m.Delete("b") {
		t.Fatalf("Expected Delete to report the key was present")
	}
	if m.Delete("b") {
		t.Errorf("Expected second Delete to report the key was absent")
	}
	if got := strings.Join(m.Keys(), ","); got != "a,c" {
		t.Errorf("Expected keys a,c after delete, got %s", got)
	}
}

func TestMap_IterateErr_StopsOnError(t *testing.T) {
	m := NewMap()
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	m.Set("c", int64(3))

	var visited []string
	err := m.IterateErr(func(key string, _ any) error {
		visited = append(visited, key)
		if key == "b" {
			return errStop
		}
		return nil
	})
	if err != errStop {
		t.Fatalf("Expected errStop, got: %v", err)
	}
	if got := strings.Join(visited, ","); got != "a,b" {
		t.Errorf("Expected iteration to stop after b, visited %s", got)
	}
}

var errStop = &stopError{}

type stopError struct{}

func (*stopError) Error() string { return "stop" }

func TestCopy_IsDeep(t *testing.T) {
	inner := NewMap()
	inner.Set("x", int64(1))
	m := NewMap()
	m.Set("nested", inner)
	m.Set("list", Sequence{int64(1), int64(2)})

	cp := Copy(m).(*Map)
	nested, _ := cp.Get("nested")
	nested.(*Map).Set("x", int64(99))
	list, _ := cp.Get("list")
	list.(Sequence)[0] = int64(99)

	if v, _ := inner.Get("x"); v != int64(1) {
		t.Errorf("Expected original nested value 1, got %v", v)
	}
	orig, _ := m.Get("list")
	if orig.(Sequence)[0] != int64(1) {
		t.Errorf("Expected original sequence element 1, got %v", orig.(Sequence)[0])
	}
}

func TestEqual(t *testing.T) {
	makeDoc := func() *Map {
		inner := NewMap()
		inner.Set("x", int64(1))
		m := NewMap()
		m.Set("a", "hello")
		m.Set("nested", inner)
		m.Set("list", Sequence{true, nil, 1.5})
		return m
	}

	if !Equal(makeDoc(), makeDoc()) {
		t.Errorf("Expected identical documents to be equal")
	}

	reordered := NewMap()
	reordered.Set("nested", NewMapWithItems([]MapItem{{Key: "x", Value: int64(1)}}))
	reordered.Set("a", "hello")
	reordered.Set("list", Sequence{true, nil, 1.5})
	if Equal(makeDoc(), reordered) {
		t.Errorf("Expected documents with different key order to differ")
	}

	changed := makeDoc()
	changed.Set("a", "goodbye")
	if Equal(makeDoc(), changed) {
		t.Errorf("Expected documents with different values to differ")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		node any
		want string
	}{
		{"mapping", NewMap(), "mapping"},
		{"sequence", Sequence{}, "sequence"},
		{"string", "s", "string"},
		{"int", int64(1), "int"},
		{"float", 1.5, "float"},
		{"bool", true, "bool"},
		{"null", nil, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.node); got != tt.want {
				t.Errorf("Expected kind %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormatScalar(t *testing.T) {
	tests := []struct {
		name string
		node any
		want string
		ok   bool
	}{
		{"string", "plain", "plain", true},
		{"int", int64(42), "42", true},
		{"negative int", int64(-7), "-7", true},
		{"float", 1.5, "1.5", true},
		{"bool true", true, "true", true},
		{"bool false", false, "false", true},
		{"null", nil, "", false},
		{"mapping", NewMap(), "", false},
		{"sequence", Sequence{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatScalar(tt.node)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

package orderedmap

import (
	"reflect"
	"testing"
)

func TestMap_SetGet(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	v, ok := m.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("expected missing key to be absent")
	}
	if !m.Has("b") {
		t.Error("expected Has(b) to be true")
	}
	if m.Len() != 2 {
		t.Errorf("expected len 2, got %d", m.Len())
	}
}

func TestMap_PreservesInsertionOrder(t *testing.T) {
	m := New[string, int]()
	for i, k := range []string{"c", "a", "b"} {
		m.Set(k, i)
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("Keys() = %v", got)
	}
	if got := m.Values(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Values() = %v", got)
	}
}

func TestMap_ReplaceKeepsPosition(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10)

	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("expected replaced value 10, got %d", v)
	}
}

func TestMap_Delete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	if !m.Delete("b") {
		t.Fatal("expected Delete(b) to report true")
	}
	if m.Delete("b") {
		t.Error("expected second Delete(b) to report false")
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
	if v, ok := m.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) after delete = %d, %v", v, ok)
	}

	m.Set("b", 4)
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"a", "c", "b"}) {
		t.Errorf("re-inserted key should go last, got %v", got)
	}
}

func TestMap_Range_StopsEarly(t *testing.T) {
	m := New[int, string]()
	for i := 0; i < 5; i++ {
		m.Set(i, "x")
	}
	var seen []int
	m.Range(func(k int, _ string) bool {
		seen = append(seen, k)
		return k < 2
	})
	if !reflect.DeepEqual(seen, []int{0, 1, 2}) {
		t.Errorf("Range visited %v", seen)
	}
}

func TestMap_KeysIsCopy(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	keys := m.Keys()
	keys[0] = "mutated"
	if !m.Has("a") || m.Keys()[0] != "a" {
		t.Error("mutating Keys() result must not affect the map")
	}
}

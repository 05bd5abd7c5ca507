package storage

import (
	"sort"
	"testing"
)

func TestPrefixDB_Isolation(t *testing.T) {
	inner := NewMemory()
	dbA := NewPrefixDB(inner, []byte("a/"))
	dbB := NewPrefixDB(inner, []byte("b/"))

	dbA.Put([]byte("key"), []byte("fromA"))
	dbB.Put([]byte("key"), []byte("fromB"))

	if got, _ := dbA.Get([]byte("key")); string(got) != "fromA" {
		t.Fatalf("A.Get = %q, want %q", got, "fromA")
	}
	if got, _ := dbB.Get([]byte("key")); string(got) != "fromB" {
		t.Fatalf("B.Get = %q, want %q", got, "fromB")
	}
	if ok, _ := dbA.Has([]byte("b/key")); ok {
		t.Fatal("A should not see B's raw key")
	}
	if got, _ := inner.Get([]byte("a/key")); string(got) != "fromA" {
		t.Fatalf("inner a/key = %q", got)
	}

	dbA.Delete([]byte("key"))
	if ok, _ := dbB.Has([]byte("key")); !ok {
		t.Fatal("deleting from A removed B's key")
	}
}

func TestPrefixDB_ForEachStripsPrefix(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("tokens/"))

	db.Put([]byte("m/k1"), []byte("v1"))
	db.Put([]byte("m/k2"), []byte("v2"))
	db.Put([]byte("x/k3"), []byte("v3"))

	var keys []string
	err := db.ForEach([]byte("m/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "m/k1" || keys[1] != "m/k2" {
		t.Fatalf("ForEach keys = %v, want [m/k1 m/k2]", keys)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	dbA := NewPrefixDB(inner, []byte("a/"))
	dbB := NewPrefixDB(inner, []byte("b/"))

	dbA.Put([]byte("k1"), []byte("v1"))
	dbA.Put([]byte("k2"), []byte("v2"))
	dbB.Put([]byte("k1"), []byte("other"))

	n, err := dbA.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteAll removed %d keys, want 2", n)
	}
	if inner.Len() != 1 {
		t.Errorf("inner has %d keys, want 1", inner.Len())
	}
	if got, _ := dbB.Get([]byte("k1")); string(got) != "other" {
		t.Fatalf("B.Get = %q, want %q", got, "other")
	}

	n, err = dbA.DeleteAll()
	if err != nil || n != 0 {
		t.Fatalf("DeleteAll on empty = %d, %v", n, err)
	}
}

func TestPrefixDB_CloseIsNoop(t *testing.T) {
	inner := NewMemory()
	db := NewPrefixDB(inner, []byte("x/"))
	db.Put([]byte("key"), []byte("val"))

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, err := inner.Get([]byte("x/key")); err != nil || string(got) != "val" {
		t.Fatalf("inner.Get after Close = %q, %v", got, err)
	}
}

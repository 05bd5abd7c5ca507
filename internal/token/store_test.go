package token

import (
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/splwallet/internal/storage"
)

func TestStore_PutGetHas(t *testing.T) {
	store := NewStore(storage.NewMemory())

	mint := "So11111111111111111111111111111111111111112"
	if has, _ := store.Has(mint); has {
		t.Fatal("expected Has=false before Put")
	}

	meta := &Metadata{Mint: mint, Decimals: 6, FirstSeen: time.Unix(1700000000, 0).UTC()}
	if err := store.Put(meta); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if has, _ := store.Has(mint); !has {
		t.Fatal("expected Has=true after Put")
	}

	got, err := store.Get(mint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Decimals != 6 || !got.FirstSeen.Equal(meta.FirstSeen) {
		t.Errorf("Get = %+v, want %+v", got, meta)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store := NewStore(storage.NewMemory())
	_, err := store.Get("nothing")
	if !errors.Is(err, ErrUnknownMint) {
		t.Fatalf("Get error = %v, want ErrUnknownMint", err)
	}
}

func TestStore_PutEmptyMint(t *testing.T) {
	store := NewStore(storage.NewMemory())
	if err := store.Put(&Metadata{}); err == nil {
		t.Fatal("expected error for empty mint")
	}
}

func TestStore_ListSortedAndReset(t *testing.T) {
	db := storage.NewMemory()
	db.Put([]byte("other"), []byte("untouched"))
	store := NewStore(db)

	for _, m := range []string{"Cmint", "Amint", "Bmint"} {
		if err := store.Put(&Metadata{Mint: m, Decimals: 9}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Mint != "Amint" || list[2].Mint != "Cmint" {
		t.Fatalf("List = %+v", list)
	}

	if err := store.Forget("Bmint"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	n, err := store.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n != 2 {
		t.Errorf("Reset removed %d, want 2", n)
	}
	if ok, _ := db.Has([]byte("other")); !ok {
		t.Error("Reset removed a key outside the mint namespace")
	}
	list, _ = store.List()
	if len(list) != 0 {
		t.Errorf("List after Reset = %+v", list)
	}
}

func TestStore_SkipsCorruptEntries(t *testing.T) {
	db := storage.NewMemory()
	store := NewStore(db)
	store.Put(&Metadata{Mint: "good", Decimals: 2})
	db.Put([]byte("m/bad"), []byte("{not json"))

	list, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Mint != "good" {
		t.Errorf("List = %+v", list)
	}
}

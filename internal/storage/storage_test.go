package storage

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOptionsRoundTrip(t *testing.T) {
	store := openTestStore(t)

	opts, err := store.LoadOptions()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(opts) != 0 {
		t.Fatalf("fresh store has options: %v", opts)
	}

	want := map[string]string{"Threads": "4", "Hash": "256", "UCI_ShowWDL": "true"}
	if err := store.SaveOptions(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.LoadOptions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("option %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)

	snap, err := store.LoadSnapshot()
	if err != nil || snap != nil {
		t.Fatalf("fresh store snapshot: %v, %v", snap, err)
	}

	var in SearchSnapshot
	in.MainHistory[0][100] = 1234
	in.MainHistory[1][4095] = -321

	if err := store.SaveSnapshot(&in); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	out, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if out == nil {
		t.Fatal("snapshot missing after save")
	}
	if out.MainHistory[0][100] != 1234 || out.MainHistory[1][4095] != -321 {
		t.Error("snapshot contents corrupted in round trip")
	}
}

func TestCorruptSnapshotRejected(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSnapshot(&SearchSnapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Flip a byte inside the stored frame.
	err := store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySnapshot))
		if err != nil {
			return err
		}
		var frame []byte
		if err := item.Value(func(val []byte) error {
			frame = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		frame[len(frame)-1] ^= 0xFF
		return txn.Set([]byte(keySnapshot), frame)
	})
	if err != nil {
		t.Fatalf("corrupting frame: %v", err)
	}

	if _, err := store.LoadSnapshot(); err != ErrCorruptSnapshot {
		t.Errorf("corrupt snapshot returned %v, want ErrCorruptSnapshot", err)
	}
}

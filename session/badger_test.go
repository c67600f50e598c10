package session

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func TestBadgerStoreSetsTTL(t *testing.T) {
	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	defer db.Close()

	store := NewBadgerStore(db, WithTTL(time.Hour))
	token, err := store.Login(context.Background(), "chris")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var expiresAt uint64
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("token:" + token))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if err != nil {
		t.Fatalf("reading token entry: %v", err)
	}
	if expiresAt == 0 {
		t.Fatal("expected entry to carry an expiry")
	}
	if until := time.Until(time.Unix(int64(expiresAt), 0)); until <= 0 || until > time.Hour {
		t.Fatalf("expected expiry within the next hour, got %v", until)
	}
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	token, err := NewBadgerStore(db).Login(ctx, "chris@example.com")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	login, ok, err := NewBadgerStore(db).LoginFor(ctx, token)
	if err != nil || !ok || login != "chris@example.com" {
		t.Fatalf("expected token to survive reopen, login=%q ok=%v err=%v", login, ok, err)
	}
}

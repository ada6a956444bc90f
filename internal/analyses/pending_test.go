package analyses

import (
	"testing"
	"time"
)

func TestPendingStoreDefaultTTL(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	store := newPendingStore(0, func() time.Time { return now })
	store.Put(Analysis{ID: "a-1", UserID: "user-1"})

	now = now.Add(15*time.Minute - time.Second)
	if _, ok := store.Get("user-1", "a-1"); !ok {
		t.Fatal("expected entry to be live just under 15 minutes")
	}
	if _, ok := store.Get("user-2", "a-1"); ok {
		t.Fatal("expected entry to be scoped to its owner")
	}

	now = now.Add(time.Second)
	if _, ok := store.Get("user-1", "a-1"); ok {
		t.Fatal("expected entry to expire at 15 minutes")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, got %d", store.Len())
	}
}

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestHistoryRepo_AppendList(t *testing.T) {
	repo := NewHistoryRepo(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		entry := &HistoryEntry{
			Username:    "alice",
			Query:       fmt.Sprintf("q%d", i),
			Answer:      fmt.Sprintf("a%d", i),
			ContextUsed: []string{"ctx"},
			Sources:     []string{"doc.pdf"},
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if entry.ID == "" {
			t.Error("Append() should assign an ID")
		}
	}
	if err := repo.Append(ctx, &HistoryEntry{Username: "bob", Query: "other", Answer: "x"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := repo.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() len = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.Query != fmt.Sprintf("q%d", i) {
			t.Errorf("List()[%d].Query = %s", i, e.Query)
		}
		if len(e.Sources) != 1 || e.Sources[0] != "doc.pdf" {
			t.Errorf("List()[%d].Sources = %v", i, e.Sources)
		}
	}

	latest, err := repo.List(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(latest) != 2 || latest[0].Query != "q1" || latest[1].Query != "q2" {
		t.Errorf("List(limit 2) = %+v, want q1,q2", latest)
	}

	bob, _ := repo.List(ctx, "bob", 10)
	if len(bob) != 1 || bob[0].ContextUsed == nil {
		t.Errorf("bob history = %+v", bob)
	}
}

func TestHistoryRepo_ListEmpty(t *testing.T) {
	repo := NewHistoryRepo(newTestDB(t))

	got, err := repo.List(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List() = %v, want empty slice", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("some document text")
	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
	if a != Fingerprint("some document text") {
		t.Error("Fingerprint should be deterministic")
	}
	if a == Fingerprint("some other text") {
		t.Error("different text should differ")
	}
}

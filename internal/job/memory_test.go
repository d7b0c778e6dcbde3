package job

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository(0)
	ctx := context.Background()
	job := New("42", "f")

	if err := repo.Save(ctx, job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := repo.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != job.ID {
		t.Errorf("expected ID %s, got %s", job.ID, saved.ID)
	}
	if repo.limit != DefaultHistory {
		t.Errorf("expected default limit %d, got %d", DefaultHistory, repo.limit)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()
	job := New("42", "f")

	_ = repo.Save(ctx, job)

	_ = job.TransitionTo(StatusDownloading)
	job.SetSource(100, ModeSinglePass)
	_ = repo.Save(ctx, job)

	saved, _ := repo.FindByID(ctx, job.ID)
	if saved.Status != StatusDownloading {
		t.Errorf("expected status %s, got %s", StatusDownloading, saved.Status)
	}
	if saved.SourceBytes != 100 {
		t.Errorf("expected SourceBytes 100, got %d", saved.SourceBytes)
	}

	all, _ := repo.List(ctx)
	if len(all) != 1 {
		t.Errorf("update must not duplicate the job, got %d", len(all))
	}
}

func TestMemoryRepository_Save_IsolatesCaller(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()
	job := New("42", "f")
	_ = repo.Save(ctx, job)

	_ = job.TransitionTo(StatusDownloading)

	saved, _ := repo.FindByID(ctx, job.ID)
	if saved.Status != StatusReceived {
		t.Errorf("stored job changed without Save: %s", saved.Status)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository(10)

	_, err := repo.FindByID(context.Background(), "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryRepository_List_NewestFirst(t *testing.T) {
	repo := NewMemoryRepository(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = repo.Save(ctx, NewWithID(fmt.Sprintf("req-%d", i), "42", "f"))
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"req-2", "req-1", "req-0"}
	for i, j := range jobs {
		if j.ID != want[i] {
			t.Errorf("jobs[%d] = %s, want %s", i, j.ID, want[i])
		}
	}
}

func TestMemoryRepository_EvictsOldestTerminal(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()

	running := NewWithID("req-running", "42", "f")
	_ = running.TransitionTo(StatusDownloading)
	_ = repo.Save(ctx, running)

	finished := NewWithID("req-finished", "42", "f")
	_ = finished.Fail("boom")
	_ = repo.Save(ctx, finished)

	_ = repo.Save(ctx, NewWithID("req-new", "42", "f"))

	if _, err := repo.FindByID(ctx, "req-finished"); err != ErrJobNotFound {
		t.Errorf("oldest terminal job should be evicted, got %v", err)
	}
	if _, err := repo.FindByID(ctx, "req-running"); err != nil {
		t.Errorf("in-flight job must not be evicted: %v", err)
	}
	if _, err := repo.FindByID(ctx, "req-new"); err != nil {
		t.Errorf("newest job missing: %v", err)
	}
}

func TestMemoryRepository_EvictionPrunesList(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()

	for _, id := range []string{"req-1", "req-2", "req-3", "req-4"} {
		j := NewWithID(id, "42", "f")
		_ = j.Fail("boom")
		_ = repo.Save(ctx, j)
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs after eviction, got %d", len(jobs))
	}
	if jobs[0].ID != "req-4" || jobs[1].ID != "req-3" {
		t.Errorf("expected [req-4 req-3], got [%s %s]", jobs[0].ID, jobs[1].ID)
	}
}

func TestMemoryRepository_KeepsInFlightBeyondLimit(t *testing.T) {
	repo := NewMemoryRepository(1)
	ctx := context.Background()

	_ = repo.Save(ctx, NewWithID("req-a", "42", "f"))
	_ = repo.Save(ctx, NewWithID("req-b", "42", "f"))

	jobs, _ := repo.List(ctx)
	if len(jobs) != 2 {
		t.Errorf("expected both in-flight jobs kept, got %d", len(jobs))
	}
}

package jobs

import (
	"testing"
	"time"

	"github.com/deltabot/delta/internal/hls"
)

func TestStorePutTake(t *testing.T) {
	store := NewStore(time.Minute)
	job := NewTransferJob("https://example.com/watch/abc-123", "/tmp", hls.QualityMedium)
	store.Put(job)

	if got := store.Take(job.ID); got == nil || got.URL != job.URL {
		t.Fatalf("Take(%q) = %+v, want stored job", job.ID, got)
	}
	if got := store.Take(job.ID); got != nil {
		t.Errorf("second Take returned %+v, want nil", got)
	}
}

func TestStoreTakeUnknown(t *testing.T) {
	store := NewStore(time.Minute)
	if got := store.Take("no-such-id"); got != nil {
		t.Errorf("Take for unknown id returned %+v, want nil", got)
	}
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(time.Minute)
	clock := time.Unix(1700000000, 0)
	store.now = func() time.Time { return clock }

	fresh := NewTransferJob("https://example.com/watch/fresh-1", "/tmp", hls.QualityHigh)
	stale := NewTransferJob("https://example.com/watch/stale-1", "/tmp", hls.QualityLowest)
	store.Put(stale)
	clock = clock.Add(2 * time.Minute)
	store.Put(fresh)

	if got := store.Take(stale.ID); got != nil {
		t.Errorf("expired job still retrievable: %+v", got)
	}
	if got := store.Take(fresh.ID); got == nil {
		t.Errorf("fresh job evicted prematurely")
	}
}

func TestNewTransferJobDefaults(t *testing.T) {
	job := NewTransferJob("https://example.com/watch/abc-123", "/tmp", hls.QualityLowest)
	if job.ID == "" {
		t.Error("job ID not assigned")
	}
	if job.Retry.Attempts != 3 {
		t.Errorf("retry attempts: got %d, want 3", job.Retry.Attempts)
	}
	if job.Metadata == nil {
		t.Error("metadata map not initialized")
	}
}

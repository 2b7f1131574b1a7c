package progress

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"docsum/internal/domain"
	"docsum/internal/logger"
)

func TestMailboxDrainPreservesOrderAndEmpties(t *testing.T) {
	m := NewMailbox()
	m.Publish(domain.NewEvent("a", domain.StatusQueued, nil))
	m.Publish(domain.NewEvent("a", domain.StatusProcessing, nil))
	got := m.Drain()
	if len(got) != 2 || got[0].Status != domain.StatusQueued || got[1].Status != domain.StatusProcessing {
		t.Fatalf("unexpected drain %+v", got)
	}
	if again := m.Drain(); len(again) != 0 {
		t.Fatalf("expected empty second drain, got %d", len(again))
	}
}

func TestMailboxConcurrentPublish(t *testing.T) {
	m := NewMailbox()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Publish(domain.NewEvent(fmt.Sprintf("f%d", i), domain.StatusQueued, nil))
		}(i)
	}
	total := 0
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		total += len(m.Drain())
		select {
		case <-done:
			total += len(m.Drain())
			if total != 50 {
				t.Fatalf("expected 50 events, got %d", total)
			}
			return
		default:
		}
	}
}

func TestFanout(t *testing.T) {
	a, b := NewMailbox(), NewMailbox()
	Fanout{a, b}.Publish(domain.NewEvent("x", domain.StatusQueued, nil))
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected both mailboxes to receive the event")
	}
}

func TestStatusStoreIsMonotonic(t *testing.T) {
	s := NewStatusStore()
	s.Track("a.pdf")
	applied := s.Apply(
		domain.NewEvent("a.pdf", domain.StatusQueued, nil),
		domain.NewEvent("a.pdf", domain.StatusSummarizing, nil),
		domain.NewEvent("a.pdf", domain.StatusProcessing, nil),
		domain.NewEvent("a.pdf", domain.StatusCompleted, &domain.Result{Success: true, Summary: "s"}),
		domain.NewEvent("a.pdf", domain.StatusError, &domain.Result{Error: "late"}),
	)
	if applied != 3 || s.Rejected() != 2 {
		t.Fatalf("expected 3 applied and 2 rejected, got %d and %d", applied, s.Rejected())
	}
	e, _ := s.Get("a.pdf")
	if e.Status != domain.StatusCompleted || e.Result == nil || e.Result.Summary != "s" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestStatusStoreTrackResets(t *testing.T) {
	s := NewStatusStore()
	s.Track("a.pdf", "b.pdf")
	s.Apply(domain.NewEvent("a.pdf", domain.StatusSkipped, &domain.Result{Error: "empty"}))
	s.Track("a.pdf")
	e, _ := s.Get("a.pdf")
	if e.Status != domain.StatusWaiting || e.Result != nil {
		t.Fatalf("expected reset to waiting, got %+v", e)
	}
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Filename != "a.pdf" || snap[1].Filename != "b.pdf" {
		t.Fatalf("unexpected snapshot order %+v", snap)
	}
}

func TestStatusStoreDoneAndCounts(t *testing.T) {
	s := NewStatusStore()
	if s.Done() {
		t.Fatalf("empty store must not be done")
	}
	s.Track("a", "b")
	s.Apply(domain.NewEvent("a", domain.StatusCompleted, nil))
	if s.Done() {
		t.Fatalf("store with a waiting file must not be done")
	}
	s.Apply(domain.NewEvent("b", domain.StatusExtractionError, nil))
	if !s.Done() {
		t.Fatalf("expected done")
	}
	counts := s.Counts()
	if counts[domain.StatusCompleted] != 1 || counts[domain.StatusExtractionError] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestStatusStoreTracksUnknownFiles(t *testing.T) {
	s := NewStatusStore()
	s.Apply(domain.NewEvent("new.pdf", domain.StatusQueued, nil))
	if e, ok := s.Get("new.pdf"); !ok || e.Status != domain.StatusQueued {
		t.Fatalf("expected unknown file to be tracked, got %+v %v", e, ok)
	}
}

func TestEventCodec(t *testing.T) {
	in := domain.NewEvent("a.pdf", domain.StatusCompleted, &domain.Result{
		Success:  true,
		Summary:  "# Summary",
		Failures: []domain.SectionResult{{Key: "methods", ErrorReason: "no documents found"}},
	})
	data, err := encodeEvent(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := decodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if out.Filename != in.Filename || out.Status != in.Status || out.Result.Failures[0].ErrorReason != "no documents found" {
		t.Fatalf("event did not survive encoding: %+v", out)
	}
	if _, err := decodeEvent(`{"filename":"a","status":"bogus"}`); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestMailboxRequeueGoesFirst(t *testing.T) {
	m := NewMailbox()
	m.Publish(domain.NewEvent("a", domain.StatusQueued, nil))
	drained := m.Drain()
	m.Publish(domain.NewEvent("a", domain.StatusProcessing, nil))
	m.Requeue(drained)
	got := m.Drain()
	if len(got) != 2 || got[0].Status != domain.StatusQueued || got[1].Status != domain.StatusProcessing {
		t.Fatalf("unexpected order after requeue: %+v", got)
	}
}

func TestRedisFlushKeepsEventsOnPushFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()
	// no background loop: flush is driven by hand
	c := &RedisChannel{client: client, key: "docsum:test", log: logger.Nop(), pending: NewMailbox()}
	c.Publish(domain.NewEvent("a.pdf", domain.StatusSummarizing, nil))
	c.Publish(domain.NewEvent("a.pdf", domain.StatusCompleted, &domain.Result{Success: true, Summary: "# Summary of a.pdf\n"}))

	if err := c.flush(); err == nil {
		t.Fatal("expected push to an unreachable server to fail")
	}
	c.Publish(domain.NewEvent("b.pdf", domain.StatusQueued, nil))
	got := c.pending.Drain()
	if len(got) != 3 {
		t.Fatalf("expected failed events to stay buffered, got %d", len(got))
	}
	if got[0].Status != domain.StatusSummarizing || got[1].Status != domain.StatusCompleted || got[2].Filename != "b.pdf" {
		t.Fatalf("unexpected buffer order %+v", got)
	}
}

// Runs against a real server when DOCSUM_TEST_REDIS_ADDR is set.
func TestRedisChannelRoundTrip(t *testing.T) {
	addr := os.Getenv("DOCSUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCSUM_TEST_REDIS_ADDR not set")
	}
	key := fmt.Sprintf("docsum:test:%d", time.Now().UnixNano())
	pub := newRedisChannel(redis.NewClient(&redis.Options{Addr: addr}), key, nil)
	if err := pub.Ping(context.Background()); err != nil {
		t.Fatalf("redis unavailable: %v", err)
	}
	pub.Publish(domain.NewEvent("a.pdf", domain.StatusQueued, nil))
	pub.Publish(domain.NewEvent("a.pdf", domain.StatusProcessing, nil))
	if err := pub.Close(); err != nil {
		t.Fatal(err)
	}

	sub := newRedisChannel(redis.NewClient(&redis.Options{Addr: addr}), key, nil)
	defer sub.Close()
	got := sub.Drain()
	if len(got) != 2 || got[1].Status != domain.StatusProcessing {
		t.Fatalf("unexpected events %+v", got)
	}
	if again := sub.Drain(); len(again) != 0 {
		t.Fatalf("expected list to be emptied, got %d", len(again))
	}
}

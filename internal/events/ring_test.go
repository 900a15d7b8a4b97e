package events

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/hostwatchhq/agent/pkg/types"
)

func TestRingStampsIDsAndBoundsRetention(t *testing.T) {
	ring := NewRing(3)
	for i := 0; i < 5; i++ {
		ring.Record(types.Event{
			Type:      types.EventHostDown,
			Timestamp: time.Unix(int64(i), 0).UTC(),
		})
	}

	recent := ring.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected retention capped at 3, got %d", len(recent))
	}
	if recent[0].Timestamp.Unix() != 2 || recent[2].Timestamp.Unix() != 4 {
		t.Fatalf("expected oldest events evicted, got %+v", recent)
	}
	seen := map[string]bool{}
	for _, ev := range recent {
		if ev.ID == "" {
			t.Fatalf("expected event ID to be stamped")
		}
		if seen[ev.ID] {
			t.Fatalf("duplicate event ID %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestRecentLimit(t *testing.T) {
	ring := NewRing(10)
	for i := 0; i < 4; i++ {
		ring.Record(types.Event{Type: types.EventHostUp})
	}
	if got := len(ring.Recent(2)); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	ring := NewRing(4)
	multi := NewMulti(nil, ring, NoopRecorder{})

	multi.Record(types.Event{Type: types.EventHostDown, Target: "192.0.2.1:80"})
	if len(ring.Recent(0)) != 1 {
		t.Fatalf("expected fan-out to reach ring recorder")
	}
}

func TestLogRecorderWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	rec := NewLogRecorder(log.New(&buf, "", 0))

	rec.Record(types.Event{Type: types.EventHostDown, Target: "192.0.2.1:80"})
	if !strings.Contains(buf.String(), "HostDown") || !strings.Contains(buf.String(), "192.0.2.1:80") {
		t.Fatalf("unexpected log line: %q", buf.String())
	}
}

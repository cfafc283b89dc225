package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("component", "test"))
	l.Debug("hidden")
	l.Info("resolved", Int("rows", 3), Duration("took", 1500*time.Millisecond), Error(errors.New("boom")))

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single json entry, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "resolved" || entry["component"] != "test" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["rows"].(float64) != 3 || entry["took"].(float64) != 1500 || entry["error"] != "boom" {
		t.Fatalf("unexpected fields %v", entry)
	}
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for _, id := range []string{"a", "a", "b"} {
		l.Error("fetch failed", String("channel_id", id))
	}
	l.Warn("not collected")
	if got := l.collector.Pending(); got != 2 {
		t.Fatalf("expected 2 unique entries, got %d", got)
	}
	l.RemoveCollector()

	if pub.topic != "logs" || len(pub.batches) != 1 {
		t.Fatalf("expected one batch on logs, got %d on %q", len(pub.batches), pub.topic)
	}
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["channel_id"].(string)] = e.Count
	}
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestCollectorThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "one", nil, "x.go:1")
	c.AddLog("error", "two", nil, "x.go:2")
	if c.Pending() != 0 {
		t.Fatalf("threshold must trigger a flush")
	}
	c.Close()
	if len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("unexpected batches %+v", pub.batches)
	}
}

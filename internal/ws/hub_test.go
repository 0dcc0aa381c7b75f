package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

type stubSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
	received chan struct{}
}

func newStubSubscriber() *stubSubscriber {
	return &stubSubscriber{received: make(chan struct{}, 16)}
}

func (s *stubSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	s.mu.Unlock()
	s.received <- struct{}{}
	return nil
}

func (s *stubSubscriber) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *stubSubscriber) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
	}
}

func (s *stubSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishRoutesByProjectAndAll(t *testing.T) {
	hub := NewHub(8, discardLogger())
	defer hub.Close()

	all := newStubSubscriber()
	apollo := newStubSubscriber()
	gemini := newStubSubscriber()
	hub.Register(AllTopic, all)
	hub.Register("apollo", apollo)
	hub.Register("gemini", gemini)

	hub.Publish(domain.Event{Type: domain.EventTaskAssigned, ProjectID: "apollo", TaskID: "t1", UserID: "m1"})
	all.wait(t)
	apollo.wait(t)

	var msg EventMessage
	if err := json.Unmarshal(apollo.payloads[0], &msg); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.Type != "task.assigned" || msg.TaskID != "t1" || msg.UserID != "m1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	hub.Publish(domain.Event{Type: domain.EventTeamCreated, TeamID: "core"})
	all.wait(t)
	if gemini.count() != 0 {
		t.Fatalf("expected no payloads for unrelated project, got %d", gemini.count())
	}
	if apollo.count() != 1 {
		t.Fatalf("expected team event to skip project subscribers, got %d", apollo.count())
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	hub := NewHub(1, discardLogger())
	sub := newStubSubscriber()
	hub.Register(AllTopic, sub)
	hub.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sub.mu.Lock()
		closed := sub.closed
		sub.mu.Unlock()
		if closed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected subscriber to be closed")
}

func TestBroadcastAfterCloseIsDropped(t *testing.T) {
	hub := NewHub(1, discardLogger())
	hub.Close()
	if hub.Broadcast([]byte("x"), AllTopic) {
		t.Fatal("expected broadcast to be rejected after close")
	}
}

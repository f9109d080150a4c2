package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

func makeMessage(chatID string, n int) domain.Message {
	return domain.Message{
		ChatID:    chatID,
		MsgID:     fmt.Sprintf("m%d", n),
		SenderID:  "u1",
		Text:      fmt.Sprintf("this is message number %d", n),
		CreatedAt: time.Unix(int64(1000+n), 0),
	}
}

func TestBufferBound(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 5, MinMessageLen: 1})

	for n := 1; n <= 12; n++ {
		reg.Append(makeMessage("c1", n))
	}

	if got := reg.Len("c1"); got != 5 {
		t.Fatalf("Expected 5 buffered messages, got %d", got)
	}

	snapshot, _ := reg.Snapshot("c1", "m12", 5)
	for i, m := range snapshot {
		want := fmt.Sprintf("m%d", 8+i)
		if m.MsgID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, m.MsgID)
		}
	}
}

func TestBufferUnderCapacity(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 25, MinMessageLen: 1})

	for n := 1; n <= 3; n++ {
		reg.Append(makeMessage("c1", n))
	}

	if got := reg.Len("c1"); got != 3 {
		t.Fatalf("Expected 3 buffered messages, got %d", got)
	}
}

func TestBufferSkipsShortMessages(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 5, MinMessageLen: 10})

	reg.Append(domain.Message{ChatID: "c1", MsgID: "m1", Text: "ok"})
	reg.Append(domain.Message{ChatID: "c1", MsgID: "m2", Text: "a longer message worth keeping"})

	if got := reg.Len("c1"); got != 1 {
		t.Fatalf("Expected 1 buffered message, got %d", got)
	}
}

func TestSnapshotStaleWhenEvicted(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 3, MinMessageLen: 1})

	for n := 1; n <= 6; n++ {
		reg.Append(makeMessage("c1", n))
	}

	// m1 was evicted; snapshot still returns the most recent messages
	snapshot, found := reg.Snapshot("c1", "m1", 3)
	if found {
		t.Error("Expected evicted message to be reported missing")
	}
	if len(snapshot) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(snapshot))
	}
	if snapshot[0].MsgID != "m4" || snapshot[2].MsgID != "m6" {
		t.Errorf("Expected m4..m6, got %s..%s", snapshot[0].MsgID, snapshot[2].MsgID)
	}
}

func TestSnapshotFindsReference(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 25, MinMessageLen: 1})

	for n := 1; n <= 5; n++ {
		reg.Append(makeMessage("c1", n))
	}

	snapshot, found := reg.Snapshot("c1", "m3", 25)
	if !found {
		t.Error("Expected reference message to be present")
	}
	if len(snapshot) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(snapshot))
	}
}

func TestLocate(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 5, MinMessageLen: 1})

	reg.Append(makeMessage("c1", 1))
	reg.Append(makeMessage("c2", 2))

	chatID, ok := reg.Locate("m2")
	if !ok || chatID != "c2" {
		t.Errorf("Expected m2 located in c2, got %q ok=%v", chatID, ok)
	}

	if _, ok := reg.Locate("missing"); ok {
		t.Error("Expected missing message to not be located")
	}
}

func TestBufferChatsIsolated(t *testing.T) {
	reg := NewBufferRegistry(BufferConfig{Capacity: 2, MinMessageLen: 1})

	for n := 1; n <= 4; n++ {
		reg.Append(makeMessage("c1", n))
	}
	reg.Append(makeMessage("c2", 9))

	if got := reg.Len("c2"); got != 1 {
		t.Errorf("Expected chat c2 unaffected by c1 eviction, got %d", got)
	}
}

package usecase

import (
	"sync"

	"github.com/elliehq/issue-relay/internal/biz/domain"
)

// BufferConfig contains buffer configuration
type BufferConfig struct {
	Capacity      int // max messages kept per chat
	MinMessageLen int // messages shorter than this (in runes) are not buffered
}

// DefaultBufferConfig returns default buffer configuration
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		Capacity:      25,
		MinMessageLen: 10,
	}
}

// chatBuffer is the bounded FIFO window of one chat's recent messages
type chatBuffer struct {
	mu   sync.Mutex
	msgs []domain.Message
}

// BufferRegistry holds the per-chat rolling message buffers. Entry
// creation is idempotent; each buffer has its own lock so unrelated
// chats never serialize on each other.
type BufferRegistry struct {
	mu     sync.RWMutex
	chats  map[string]*chatBuffer
	config BufferConfig
}

// NewBufferRegistry creates a buffer registry
func NewBufferRegistry(config BufferConfig) *BufferRegistry {
	if config.Capacity <= 0 {
		config.Capacity = DefaultBufferConfig().Capacity
	}
	return &BufferRegistry{
		chats:  make(map[string]*chatBuffer),
		config: config,
	}
}

func (r *BufferRegistry) buffer(chatID string) *chatBuffer {
	r.mu.RLock()
	b, ok := r.chats[chatID]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.chats[chatID]; ok {
		return b
	}
	b = &chatBuffer{}
	r.chats[chatID] = b
	return b
}

// Append stores a message at the tail of its chat's buffer, evicting the
// oldest entry when the buffer is at capacity. Messages below the
// configured minimum length are ignored.
func (r *BufferRegistry) Append(msg domain.Message) {
	if len([]rune(msg.Text)) < r.config.MinMessageLen {
		return
	}

	b := r.buffer(msg.ChatID)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.msgs = append(b.msgs, msg)
	if len(b.msgs) > r.config.Capacity {
		// Eviction is a normal consequence of the capacity bound
		b.msgs = b.msgs[len(b.msgs)-r.config.Capacity:]
	}
}

// Snapshot returns up to maxSize of the most recent messages in the
// chat, in chronological order. The second return is false when the
// reference message is no longer (or was never) in the buffer, which
// marks the resulting bundle as stale.
func (r *BufferRegistry) Snapshot(chatID, aroundMsgID string, maxSize int) ([]domain.Message, bool) {
	b := r.buffer(chatID)
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, m := range b.msgs {
		if m.MsgID == aroundMsgID {
			found = true
			break
		}
	}

	start := 0
	if maxSize > 0 && len(b.msgs) > maxSize {
		start = len(b.msgs) - maxSize
	}
	snapshot := make([]domain.Message, len(b.msgs)-start)
	copy(snapshot, b.msgs[start:])
	return snapshot, found
}

// Locate finds which chat's buffer holds a message id. Used for
// platforms whose reaction events carry no chat identity.
func (r *BufferRegistry) Locate(msgID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for chatID, b := range r.chats {
		b.mu.Lock()
		for _, m := range b.msgs {
			if m.MsgID == msgID {
				b.mu.Unlock()
				return chatID, true
			}
		}
		b.mu.Unlock()
	}
	return "", false
}

// Contains reports whether a chat's buffer holds a message id
func (r *BufferRegistry) Contains(chatID, msgID string) bool {
	b := r.buffer(chatID)
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range b.msgs {
		if m.MsgID == msgID {
			return true
		}
	}
	return false
}

// Len returns the number of buffered messages for a chat
func (r *BufferRegistry) Len(chatID string) int {
	b := r.buffer(chatID)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

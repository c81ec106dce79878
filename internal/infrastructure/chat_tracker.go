package infrastructure

import (
	"sort"
	"sync"

	"wppserver/internal/entities"
	"wppserver/internal/interfaces"
)

// trackedMessages caps the per-chat ring of recent messages the driver
// can serve without a protocol round-trip.
const trackedMessages = 50

type chatState struct {
	name        string
	lastTs      int64
	unreadCount int
	messages    []entities.Message
}

// chatTracker maintains the driver's native chat list, ordered by
// recency, from the messages that flow through the session. whatsmeow
// has no server-side chat listing, so the driver keeps its own
// (mirrors the synced chat store other whatsmeow services carry).
type chatTracker struct {
	mu    sync.RWMutex
	chats map[string]*chatState
}

func newChatTracker() *chatTracker {
	return &chatTracker{chats: make(map[string]*chatState)}
}

func (t *chatTracker) Record(msg interfaces.DriverMessage, pushName string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.chats[msg.RemoteID]
	if !ok {
		state = &chatState{}
		t.chats[msg.RemoteID] = state
	}
	if pushName != "" && !msg.FromMe {
		state.name = pushName
	}
	state.lastTs = msg.Timestamp
	if msg.FromMe {
		state.unreadCount = 0
	} else {
		state.unreadCount++
	}

	state.messages = append(state.messages, msg.Message)
	if len(state.messages) > trackedMessages {
		state.messages = state.messages[len(state.messages)-trackedMessages:]
	}
}

// Summaries returns every known chat, most recently active first.
func (t *chatTracker) Summaries() []entities.ChatSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]entities.ChatSummary, 0, len(t.chats))
	for id, state := range t.chats {
		summary := entities.ChatSummary{
			ID:          id,
			Name:        state.name,
			Timestamp:   state.lastTs,
			UnreadCount: state.unreadCount,
		}
		if len(state.messages) > 0 {
			last := state.messages[len(state.messages)-1]
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Recent returns up to limit messages for a chat, newest last.
func (t *chatTracker) Recent(chatID string, limit int) []entities.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.chats[chatID]
	if !ok {
		return nil
	}
	msgs := state.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]entities.Message, len(msgs))
	copy(out, msgs)
	return out
}

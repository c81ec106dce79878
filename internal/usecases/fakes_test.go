package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"wppserver/internal/entities"
	"wppserver/internal/interfaces"
)

// fakeDriver is a scriptable Driver for lifecycle and fan-out tests.
type fakeDriver struct {
	mu           sync.Mutex
	events       chan interfaces.DriverEvent
	closed       bool
	initErrs     []error // consumed one per Initialize call
	initCalls    int
	state        string
	stateErr     error
	logoutCalled bool
	chats        []entities.ChatSummary
	recent       map[string][]entities.Message
	sent         []entities.Message
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		events: make(chan interfaces.DriverEvent, 32),
		state:  "CONNECTED",
		recent: make(map[string][]entities.Message),
	}
}

func (d *fakeDriver) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initCalls++
	if len(d.initErrs) > 0 {
		err := d.initErrs[0]
		d.initErrs = d.initErrs[1:]
		return err
	}
	return nil
}

func (d *fakeDriver) GetState(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.stateErr
}

func (d *fakeDriver) SendMessage(ctx context.Context, to, body string) (entities.Message, error) {
	msg := entities.Message{Body: body, Type: "chat", To: to, FromMe: true, Timestamp: time.Now().Unix()}
	d.mu.Lock()
	d.sent = append(d.sent, msg)
	d.mu.Unlock()
	return msg, nil
}

func (d *fakeDriver) SendMedia(ctx context.Context, to, mimeType, data, caption string) (entities.Message, error) {
	msg := entities.Message{Body: caption, Type: "image", To: to, FromMe: true, Timestamp: time.Now().Unix()}
	d.mu.Lock()
	d.sent = append(d.sent, msg)
	d.mu.Unlock()
	return msg, nil
}

func (d *fakeDriver) GetChats(ctx context.Context) ([]entities.ChatSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chats, nil
}

func (d *fakeDriver) GetRecentMessages(ctx context.Context, chatID string, limit int) ([]entities.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	msgs := d.recent[chatID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (d *fakeDriver) GetNumberID(ctx context.Context, raw string) (string, error) {
	return raw + "@s.whatsapp.net", nil
}

func (d *fakeDriver) GetContactName(ctx context.Context, jid string) (string, error) {
	return "Contact " + jid, nil
}

func (d *fakeDriver) Logout(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logoutCalled = true
	return nil
}

func (d *fakeDriver) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

func (d *fakeDriver) Events() <-chan interfaces.DriverEvent {
	return d.events
}

func (d *fakeDriver) emit(evt interfaces.DriverEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.events <- evt
	}
}

func (d *fakeDriver) loggedOut() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logoutCalled
}

func (d *fakeDriver) initializeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initCalls
}

type emitted struct {
	TenantID string
	Event    string
	Payload  interface{}
}

// fakeBroadcaster records every Emit for assertion.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (b *fakeBroadcaster) Emit(tenantID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, emitted{TenantID: tenantID, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) all() []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]emitted, len(b.events))
	copy(out, b.events)
	return out
}

func (b *fakeBroadcaster) statuses(tenantID string) []entities.StatusUpdate {
	var out []entities.StatusUpdate
	for _, e := range b.all() {
		if e.TenantID == tenantID && e.Event == EventStatus {
			if s, ok := e.Payload.(entities.StatusUpdate); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (b *fakeBroadcaster) eventNames(tenantID string) []string {
	var out []string
	for _, e := range b.all() {
		if e.TenantID == tenantID {
			out = append(out, e.Event)
		}
	}
	return out
}

type appended struct {
	ClientID    string
	RemoteID    string
	IsGroup     bool
	ContactName string
	Message     entities.Message
}

// fakeChatStore is an in-memory ChatStore.
type fakeChatStore struct {
	mu        sync.Mutex
	appends   []appended
	chats     map[string]*entities.Chat // keyed clientID+"|"+remoteID
	appendErr error
	names     map[string]string
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats: make(map[string]*entities.Chat),
		names: make(map[string]string),
	}
}

func (s *fakeChatStore) AppendMessage(ctx context.Context, clientID, remoteID string, isGroup bool, contactName string, msg entities.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appends = append(s.appends, appended{clientID, remoteID, isGroup, contactName, msg})
	key := clientID + "|" + remoteID
	chat, ok := s.chats[key]
	if !ok {
		chat = &entities.Chat{ClientID: clientID, RemoteID: remoteID, IsGroup: isGroup}
		s.chats[key] = chat
	}
	chat.Messages = append(chat.Messages, msg)
	return nil
}

func (s *fakeChatStore) SetContactName(ctx context.Context, clientID, remoteID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[clientID+"|"+remoteID] = name
	return nil
}

func (s *fakeChatStore) Find(ctx context.Context, clientID, remoteID string) (*entities.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[clientID+"|"+remoteID]
	if !ok {
		return nil, nil
	}
	copied := *chat
	copied.Messages = append([]entities.Message(nil), chat.Messages...)
	return &copied, nil
}

func (s *fakeChatStore) FindByClient(ctx context.Context, clientID string) ([]entities.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.Chat
	for _, chat := range s.chats {
		if chat.ClientID == clientID {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (s *fakeChatStore) AddLabel(ctx context.Context, clientID, remoteID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat, ok := s.chats[clientID+"|"+remoteID]; ok {
		chat.Labels = append(chat.Labels, label)
	}
	return nil
}

func (s *fakeChatStore) RemoveLabel(ctx context.Context, clientID, remoteID, label string) error {
	return nil
}

func (s *fakeChatStore) Delete(ctx context.Context, clientID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, clientID+"|"+remoteID)
	return nil
}

func (s *fakeChatStore) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appends)
}

func (s *fakeChatStore) allAppends() []appended {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appended, len(s.appends))
	copy(out, s.appends)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

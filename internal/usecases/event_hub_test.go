package usecases

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/interfaces"
)

type hubFixture struct {
	registry    *infrastructure.SessionRegistry
	qrCache     *infrastructure.QRCache
	broadcaster *fakeBroadcaster
	chats       *fakeChatStore
	hub         *EventHub
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	f := &hubFixture{
		registry:    infrastructure.NewSessionRegistry(),
		qrCache:     infrastructure.NewQRCache(),
		broadcaster: &fakeBroadcaster{},
		chats:       newFakeChatStore(),
	}
	f.hub = NewEventHub(f.broadcaster, f.chats, f.qrCache, f.registry, waLog.Noop)
	return f
}

func inboundMessage(remoteID, body string, ts int64) interfaces.DriverEvent {
	return interfaces.DriverEvent{
		Type: interfaces.EventMessageCreate,
		Message: &interfaces.DriverMessage{
			Message:  entities.Message{Body: body, Type: "chat", From: remoteID, Timestamp: ts},
			RemoteID: remoteID,
		},
	}
}

func TestQRChallengeIsCachedAndBroadcast(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: "FIRST"})
	driver.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: "SECOND"})

	waitFor(t, time.Second, func() bool { return f.qrCache.Latest("tenant-1") == "SECOND" })

	statuses := f.broadcaster.statuses("tenant-1")
	require.Len(t, statuses, 2)
	assert.Equal(t, entities.StatusQRCode, statuses[0].Status)
	assert.Equal(t, "FIRST", statuses[0].QR)
	assert.Equal(t, "SECOND", statuses[1].QR)
}

func TestAuthenticationInvalidatesChallenge(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: "CODE"})
	waitFor(t, time.Second, func() bool { return f.qrCache.Latest("tenant-1") == "CODE" })

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventAuthenticated})
	waitFor(t, time.Second, func() bool { return f.qrCache.Latest("tenant-1") == "" })

	var seen bool
	for _, s := range f.broadcaster.statuses("tenant-1") {
		if s.Status == entities.StatusAuthenticated {
			seen = true
		}
	}
	assert.True(t, seen)
}

func TestAuthFailureIsBroadcast(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventAuthFailure, Reason: "timeout"})

	waitFor(t, time.Second, func() bool {
		for _, s := range f.broadcaster.statuses("tenant-1") {
			if s.Status == entities.StatusAuthFailure {
				return true
			}
		}
		return false
	})
}

func TestInboundMessageBroadcastAndPersisted(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(inboundMessage("5511999@s.whatsapp.net", "oi", 100))

	waitFor(t, time.Second, func() bool { return f.chats.appendCount() == 1 })

	names := f.broadcaster.eventNames("tenant-1")
	assert.Contains(t, names, EventMessageReceived)
	assert.Contains(t, names, EventMessage)
	assert.NotContains(t, names, EventMessageSent)

	appends := f.chats.allAppends()
	require.Len(t, appends, 1)
	assert.Equal(t, "tenant-1", appends[0].ClientID)
	assert.Equal(t, "5511999@s.whatsapp.net", appends[0].RemoteID)
	assert.Equal(t, "oi", appends[0].Message.Body)
}

func TestOwnMessageEmitsRecentActivity(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	driver.chats = []entities.ChatSummary{
		{ID: "a@s.whatsapp.net", Timestamp: 300},
		{ID: "b@s.whatsapp.net", Timestamp: 200},
		{ID: "c@s.whatsapp.net", Timestamp: 100},
		{ID: "d@s.whatsapp.net", Timestamp: 50},
	}
	driver.recent["a@s.whatsapp.net"] = []entities.Message{{Body: "last", Timestamp: 300}}
	require.True(t, f.registry.Register("tenant-1", driver))
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{
		Type: interfaces.EventMessageCreate,
		Message: &interfaces.DriverMessage{
			Message:  entities.Message{Body: "reply", FromMe: true, To: "a@s.whatsapp.net", Timestamp: 300},
			RemoteID: "a@s.whatsapp.net",
		},
	})

	waitFor(t, time.Second, func() bool {
		names := f.broadcaster.eventNames("tenant-1")
		for _, n := range names {
			if n == EventLastMessages {
				return true
			}
		}
		return false
	})

	names := f.broadcaster.eventNames("tenant-1")
	assert.Contains(t, names, EventMessage)
	assert.Contains(t, names, EventMessageSent)
	assert.NotContains(t, names, EventMessageReceived)

	// The chat snapshot is capped at the three most recent chats.
	for _, e := range f.broadcaster.all() {
		if e.Event == EventLastChats {
			chats, ok := e.Payload.([]entities.ChatSummary)
			require.True(t, ok)
			assert.Len(t, chats, lastChatsCount)
			assert.Equal(t, "a@s.whatsapp.net", chats[0].ID)
		}
	}
}

func TestSystemBroadcastChannelIsNotPersisted(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(inboundMessage(statusBroadcastJID, "status update", 100))
	driver.emit(inboundMessage("real@s.whatsapp.net", "hello", 101))

	waitFor(t, time.Second, func() bool { return f.chats.appendCount() == 1 })

	appends := f.chats.allAppends()
	require.Len(t, appends, 1)
	assert.Equal(t, "real@s.whatsapp.net", appends[0].RemoteID)

	// The status channel message is still broadcast live.
	names := f.broadcaster.eventNames("tenant-1")
	received := 0
	for _, n := range names {
		if n == EventMessageReceived {
			received++
		}
	}
	assert.Equal(t, 2, received)
}

func TestPersistenceFailureDoesNotBlockBroadcast(t *testing.T) {
	f := newHubFixture(t)
	f.chats.appendErr = errors.New("connection refused")
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(inboundMessage("x@s.whatsapp.net", "one", 1))
	driver.emit(inboundMessage("x@s.whatsapp.net", "two", 2))

	waitFor(t, time.Second, func() bool {
		count := 0
		for _, n := range f.broadcaster.eventNames("tenant-1") {
			if n == EventMessageReceived {
				count++
			}
		}
		return count == 2
	})
	assert.Equal(t, 0, f.chats.appendCount())
}

func TestWatchEndsWhenDriverDestroyed(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: "CODE"})
	waitFor(t, time.Second, func() bool { return f.qrCache.Latest("tenant-1") == "CODE" })

	require.NoError(t, driver.Destroy())

	// Emitting after destroy is dropped by the fake; the watcher simply
	// drains and exits. Nothing further reaches the broadcaster.
	before := len(f.broadcaster.all())
	driver.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: "LATE"})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, len(f.broadcaster.all()))
}

func TestReadyWithoutOnReadyHook(t *testing.T) {
	f := newHubFixture(t)
	driver := newFakeDriver()
	f.hub.Watch("tenant-1", driver)

	driver.emit(interfaces.DriverEvent{Type: interfaces.EventReady})

	waitFor(t, time.Second, func() bool {
		for _, s := range f.broadcaster.statuses("tenant-1") {
			if s.Status == entities.StatusActivating {
				return true
			}
		}
		return false
	})
}

package usecases

import (
	"context"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/interfaces"
)

// Real-time event names the front-end subscribes to.
const (
	EventStatus          = "whatsNumber"
	EventMessage         = "message"
	EventMessageSent     = "message-sent"
	EventMessageReceived = "message-received"
	EventLastChats       = "last-chats"
	EventLastMessages    = "last-messages"
)

const (
	lastChatsCount    = 3
	lastMessagesCount = 10

	// Protocol system channel; its messages are never persisted.
	statusBroadcastJID = "status@broadcast"
)

// EventHub subscribes once to each tenant driver's event stream and
// fans every event out to the tenant's subscribers, mirroring message
// traffic into durable storage. It holds only the tenant id as a weak
// reference; driver handles stay owned by the registry.
type EventHub struct {
	broadcaster interfaces.Broadcaster
	chats       interfaces.ChatStore
	qrCache     *infrastructure.QRCache
	registry    *infrastructure.SessionRegistry
	log         waLog.Logger

	// OnReady is invoked when a session reports ready, after the
	// "Ativando" broadcast. Set by the session manager.
	OnReady func(tenantID string)
}

func NewEventHub(
	broadcaster interfaces.Broadcaster,
	chats interfaces.ChatStore,
	qrCache *infrastructure.QRCache,
	registry *infrastructure.SessionRegistry,
	log waLog.Logger,
) *EventHub {
	return &EventHub{
		broadcaster: broadcaster,
		chats:       chats,
		qrCache:     qrCache,
		registry:    registry,
		log:         log,
	}
}

// Watch consumes the driver's event stream until the driver is
// destroyed. The subscription ends deterministically when the channel
// closes, so repeated re-activation of a tenant never leaks watchers.
func (h *EventHub) Watch(tenantID string, driver interfaces.Driver) {
	events := driver.Events()
	go func() {
		for evt := range events {
			h.dispatch(tenantID, evt)
		}
		h.log.Debugf("Event stream closed for %s", tenantID)
	}()
}

func (h *EventHub) dispatch(tenantID string, evt interfaces.DriverEvent) {
	switch evt.Type {
	case interfaces.EventQR:
		h.log.Infof("Generated qr-code - %s", tenantID)
		h.qrCache.Store(tenantID, evt.QR)
		h.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
			Status:  entities.StatusQRCode,
			Message: "QR code gerado. Escaneie para conectar.",
			QR:      evt.QR,
		})

	case interfaces.EventLoadingScreen:
		h.log.Infof("Loading whatsapp connection %d%% - %s", evt.Percent, tenantID)

	case interfaces.EventAuthenticated:
		h.log.Infof("Client authenticated - %s", tenantID)
		// Pairing succeeded: a cached challenge is stale from here on.
		h.qrCache.Invalidate(tenantID)
		h.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
			Status:  entities.StatusAuthenticated,
			Message: "Client authenticated.",
		})

	case interfaces.EventAuthFailure:
		h.log.Errorf("Auth failure - %s // %s", tenantID, evt.Reason)
		h.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
			Status:  entities.StatusAuthFailure,
			Message: "Auth failure.",
		})

	case interfaces.EventReady:
		h.log.Infof("Client is READY - %s", tenantID)
		h.qrCache.Invalidate(tenantID)
		h.broadcaster.Emit(tenantID, EventStatus, entities.StatusUpdate{
			Status:  entities.StatusActivating,
			Message: "Client is READY",
		})
		if h.OnReady != nil {
			h.OnReady(tenantID)
		}

	case interfaces.EventMessageCreate:
		if evt.Message != nil {
			h.handleMessage(tenantID, *evt.Message)
		}
	}
}

// handleMessage rebroadcasts a message to the tenant's subscribers and
// mirrors it into storage. Broadcast-then-persist: a failed write is
// logged and never rolls the broadcast back.
func (h *EventHub) handleMessage(tenantID string, msg interfaces.DriverMessage) {
	if msg.FromMe {
		h.log.Infof("Sent message - %s", tenantID)
		h.broadcaster.Emit(tenantID, EventMessage, msg.Message)
		h.broadcaster.Emit(tenantID, EventMessageSent, msg.Message)
		h.emitRecentActivity(tenantID)
	} else {
		h.log.Infof("Received message - %s", tenantID)
		h.broadcaster.Emit(tenantID, EventMessageReceived, msg.Message)
		h.broadcaster.Emit(tenantID, EventMessage, msg.Message)
	}

	if msg.RemoteID == statusBroadcastJID {
		return
	}

	if err := h.chats.AppendMessage(context.Background(), tenantID, msg.RemoteID, msg.IsGroup, "", msg.Message); err != nil {
		h.log.Errorf("Save chat into DB failed - %s // %v", tenantID, err)
		return
	}
	h.log.Debugf("Saved chat into DB - %s", tenantID)
}

// emitRecentActivity broadcasts a small snapshot for UI refresh: the
// last chats plus the recent messages of the most recently active one.
func (h *EventHub) emitRecentActivity(tenantID string) {
	driver, ok := h.registry.Get(tenantID)
	if !ok {
		return
	}

	ctx := context.Background()
	chats, err := driver.GetChats(ctx)
	if err != nil || len(chats) == 0 {
		return
	}
	if len(chats) > lastChatsCount {
		chats = chats[:lastChatsCount]
	}

	// The driver orders chats by recency, so the first entry is the
	// active conversation.
	recent, err := driver.GetRecentMessages(ctx, chats[0].ID, lastMessagesCount)
	if err != nil {
		recent = nil
	}

	h.broadcaster.Emit(tenantID, EventLastChats, chats)
	h.broadcaster.Emit(tenantID, EventLastMessages, recent)
}

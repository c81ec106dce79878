package interfaces

import (
	"context"

	"wppserver/internal/entities"
)

// DriverEventType enumerates the events a session driver emits.
type DriverEventType int

const (
	EventQR DriverEventType = iota
	EventLoadingScreen
	EventAuthenticated
	EventAuthFailure
	EventReady
	EventMessageCreate
)

// DriverEvent is one entry in a tenant driver's event stream. Events
// from a single driver are delivered in emission order.
type DriverEvent struct {
	Type    DriverEventType
	QR      string
	Percent int
	Reason  string
	Message *DriverMessage
}

// DriverMessage is a message envelope as observed by the driver,
// covering both directions.
type DriverMessage struct {
	entities.Message
	RemoteID string // counterparty chat identity
	IsGroup  bool
}

// Driver speaks the WhatsApp protocol on behalf of exactly one tenant.
// Implementations own their event channel: it is closed by Destroy and
// never reused across reconnects.
type Driver interface {
	Initialize(ctx context.Context) error
	GetState(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, to, body string) (entities.Message, error)
	SendMedia(ctx context.Context, to, mimeType, data, caption string) (entities.Message, error)
	GetChats(ctx context.Context) ([]entities.ChatSummary, error)
	GetRecentMessages(ctx context.Context, chatID string, limit int) ([]entities.Message, error)
	GetNumberID(ctx context.Context, raw string) (string, error)
	GetContactName(ctx context.Context, jid string) (string, error)
	Logout(ctx context.Context) error
	Destroy() error
	Events() <-chan DriverEvent
}

// DriverFactory builds a fresh driver for a tenant. The lifecycle
// manager guarantees at most one live driver per tenant id.
type DriverFactory func(tenantID string) (Driver, error)

// Broadcaster fans an event out to every real-time subscriber scoped
// to the tenant. Fire-and-forget: delivery is best-effort.
type Broadcaster interface {
	Emit(tenantID, event string, payload interface{})
}

// TenantStore is the durable record of registered tenants.
type TenantStore interface {
	Create(ctx context.Context, t *entities.Tenant) error
	GetByID(ctx context.Context, id string) (*entities.Tenant, error)
	FindByUser(ctx context.Context, userID string) ([]entities.Tenant, error)
	All(ctx context.Context) ([]entities.Tenant, error)
	Update(ctx context.Context, t *entities.Tenant) error
	Delete(ctx context.Context, id string) error
}

// ChatStore persists chat history. AppendMessage upserts the chat keyed
// by (clientID, remoteID) and appends atomically, so writes for one
// pair are serialized by the store.
type ChatStore interface {
	AppendMessage(ctx context.Context, clientID, remoteID string, isGroup bool, contactName string, msg entities.Message) error
	SetContactName(ctx context.Context, clientID, remoteID, name string) error
	Find(ctx context.Context, clientID, remoteID string) (*entities.Chat, error)
	FindByClient(ctx context.Context, clientID string) ([]entities.Chat, error)
	AddLabel(ctx context.Context, clientID, remoteID, label string) error
	RemoveLabel(ctx context.Context, clientID, remoteID, label string) error
	Delete(ctx context.Context, clientID, remoteID string) error
}

// QuickReplyStore is the CRUD contract for message templates.
type QuickReplyStore interface {
	Create(ctx context.Context, qr *entities.QuickReply) error
	FindByUser(ctx context.Context, userID string) ([]entities.QuickReply, error)
	Update(ctx context.Context, id, title, text string) (*entities.QuickReply, error)
	Delete(ctx context.Context, id string) error
}

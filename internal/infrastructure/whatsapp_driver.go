package infrastructure

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"wppserver/internal/entities"
	"wppserver/internal/interfaces"
)

const driverEventBuffer = 256

// WhatsAppDriver adapts a whatsmeow client to the Driver port for one
// tenant. Session credentials live in a per-tenant SQLite store under
// the factory's base directory.
type WhatsAppDriver struct {
	tenantID string
	client   *whatsmeow.Client
	log      waLog.Logger

	events chan interfaces.DriverEvent
	closed bool
	evtMu  sync.Mutex

	chats *chatTracker
}

// WhatsAppDriverFactory builds whatsmeow-backed drivers and knows how
// to locate each tenant's session artifacts on disk.
type WhatsAppDriverFactory struct {
	BaseDir string
	Log     waLog.Logger
}

func NewWhatsAppDriverFactory(baseDir string, log waLog.Logger) (*WhatsAppDriverFactory, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &WhatsAppDriverFactory{BaseDir: baseDir, Log: log}, nil
}

// New builds a driver for the tenant. The lifecycle manager guarantees
// at most one live driver per tenant id.
func (f *WhatsAppDriverFactory) New(tenantID string) (interfaces.Driver, error) {
	dbPath := f.sessionDBPath(tenantID)
	dbLog := f.Log.Sub("Database").Sub(tenantID)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := f.Log.Sub("Client").Sub(tenantID)
	client := whatsmeow.NewClient(deviceStore, clientLog)

	d := &WhatsAppDriver{
		tenantID: tenantID,
		client:   client,
		log:      clientLog,
		events:   make(chan interfaces.DriverEvent, driverEventBuffer),
		chats:    newChatTracker(),
	}
	client.AddEventHandler(d.handleEvent)

	return d, nil
}

func (f *WhatsAppDriverFactory) sessionDBPath(tenantID string) string {
	return filepath.Join(f.BaseDir, fmt.Sprintf("client_%s.db", tenantID))
}

// RemoveArtifacts deletes the tenant's on-disk session store. SQLite
// keeps WAL sidecar files next to the database, so all three must go.
func (f *WhatsAppDriverFactory) RemoveArtifacts(tenantID string) error {
	base := f.sessionDBPath(tenantID)
	var firstErr error
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Initialize connects the underlying client. For a device that never
// paired, the QR channel is pumped into the event stream until the
// pairing either succeeds or fails.
func (d *WhatsAppDriver) Initialize(ctx context.Context) error {
	if d.client.Store.ID == nil {
		// No ID stored, new login
		qrChan, err := d.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		if err := d.client.Connect(); err != nil {
			return err
		}

		go func() {
			for evt := range qrChan {
				switch evt.Event {
				case "code":
					d.emit(interfaces.DriverEvent{Type: interfaces.EventQR, QR: evt.Code})
				case "success":
					d.emit(interfaces.DriverEvent{Type: interfaces.EventAuthenticated})
				case "timeout", "err-client-outdated":
					d.emit(interfaces.DriverEvent{Type: interfaces.EventAuthFailure, Reason: evt.Event})
				default:
					d.log.Debugf("Login event: %s", evt.Event)
				}
			}
		}()
		return nil
	}

	// Already paired, reconnect with the stored session
	if err := d.client.Connect(); err != nil {
		return err
	}
	d.emit(interfaces.DriverEvent{Type: interfaces.EventAuthenticated})
	return nil
}

func (d *WhatsAppDriver) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		d.emit(interfaces.DriverEvent{Type: interfaces.EventReady})
	case *events.PairSuccess:
		d.emit(interfaces.DriverEvent{Type: interfaces.EventAuthenticated})
	case *events.LoggedOut:
		d.emit(interfaces.DriverEvent{Type: interfaces.EventAuthFailure, Reason: "logged out"})
	case *events.Message:
		msg := d.convertMessage(v)
		d.chats.Record(msg, v.Info.PushName)
		d.emit(interfaces.DriverEvent{Type: interfaces.EventMessageCreate, Message: &msg})
	}
}

func (d *WhatsAppDriver) convertMessage(evt *events.Message) interfaces.DriverMessage {
	var body string
	msgType := "chat"
	switch {
	case evt.Message.GetConversation() != "":
		body = evt.Message.GetConversation()
	case evt.Message.GetExtendedTextMessage() != nil:
		body = evt.Message.GetExtendedTextMessage().GetText()
	case evt.Message.GetImageMessage() != nil:
		body = evt.Message.GetImageMessage().GetCaption()
		msgType = "image"
	case evt.Message.GetDocumentMessage() != nil:
		body = evt.Message.GetDocumentMessage().GetCaption()
		msgType = "document"
	}

	return interfaces.DriverMessage{
		Message: entities.Message{
			Body:      body,
			Type:      msgType,
			Timestamp: evt.Info.Timestamp.Unix(),
			To:        evt.Info.Chat.String(),
			From:      evt.Info.Sender.String(),
			FromMe:    evt.Info.IsFromMe,
		},
		RemoteID: evt.Info.Chat.String(),
		IsGroup:  evt.Info.IsGroup,
	}
}

// emit delivers an event without blocking the whatsmeow callback
// goroutine. A full buffer drops the event with a warning.
func (d *WhatsAppDriver) emit(evt interfaces.DriverEvent) {
	d.evtMu.Lock()
	defer d.evtMu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- evt:
	default:
		d.log.Warnf("Event buffer full, dropping event type %d", evt.Type)
	}
}

func (d *WhatsAppDriver) Events() <-chan interfaces.DriverEvent {
	return d.events
}

// GetState reports the connection state in the vocabulary the status
// endpoint exposes: CONNECTED, OPENING or DISCONNECTED.
func (d *WhatsAppDriver) GetState(ctx context.Context) (string, error) {
	switch {
	case d.client.IsConnected() && d.client.Store.ID != nil:
		return "CONNECTED", nil
	case d.client.IsConnected():
		return "OPENING", nil
	default:
		return "DISCONNECTED", nil
	}
}

func (d *WhatsAppDriver) SendMessage(ctx context.Context, to, body string) (entities.Message, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return entities.Message{}, fmt.Errorf("invalid recipient: %w", err)
	}

	resp, err := d.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return entities.Message{}, err
	}

	sent := d.sentMessage(jid, body, "chat", resp.Timestamp.Unix())
	d.recordAndEmitSent(sent, jid)
	return sent, nil
}

func (d *WhatsAppDriver) SendMedia(ctx context.Context, to, mimeType, data, caption string) (entities.Message, error) {
	jid, err := types.ParseJID(to)
	if err != nil {
		return entities.Message{}, fmt.Errorf("invalid recipient: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return entities.Message{}, fmt.Errorf("decode media: %w", err)
	}

	mediaType := whatsmeow.MediaDocument
	if strings.HasPrefix(mimeType, "image/") {
		mediaType = whatsmeow.MediaImage
	}

	up, err := d.client.Upload(ctx, raw, mediaType)
	if err != nil {
		return entities.Message{}, fmt.Errorf("upload media: %w", err)
	}

	var msg waProto.Message
	if mediaType == whatsmeow.MediaImage {
		msg.ImageMessage = &waProto.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	} else {
		msg.DocumentMessage = &waProto.DocumentMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	}

	resp, err := d.client.SendMessage(ctx, jid, &msg)
	if err != nil {
		return entities.Message{}, err
	}

	msgType := "document"
	if mediaType == whatsmeow.MediaImage {
		msgType = "image"
	}
	sent := d.sentMessage(jid, caption, msgType, resp.Timestamp.Unix())
	d.recordAndEmitSent(sent, jid)
	return sent, nil
}

func (d *WhatsAppDriver) sentMessage(to types.JID, body, msgType string, ts int64) entities.Message {
	from := ""
	if d.client.Store.ID != nil {
		from = d.client.Store.ID.String()
	}
	return entities.Message{
		Body:      body,
		Type:      msgType,
		Timestamp: ts,
		To:        to.String(),
		From:      from,
		FromMe:    true,
	}
}

// recordAndEmitSent mirrors an API-sent message into the event stream
// so the fan-out hub sees outbound traffic the same way it sees
// inbound traffic.
func (d *WhatsAppDriver) recordAndEmitSent(sent entities.Message, jid types.JID) {
	dm := interfaces.DriverMessage{
		Message:  sent,
		RemoteID: jid.String(),
		IsGroup:  jid.Server == types.GroupServer,
	}
	d.chats.Record(dm, "")
	d.emit(interfaces.DriverEvent{Type: interfaces.EventMessageCreate, Message: &dm})
}

// GetChats lists known chats most recently active first.
func (d *WhatsAppDriver) GetChats(ctx context.Context) ([]entities.ChatSummary, error) {
	return d.chats.Summaries(), nil
}

func (d *WhatsAppDriver) GetRecentMessages(ctx context.Context, chatID string, limit int) ([]entities.Message, error) {
	return d.chats.Recent(chatID, limit), nil
}

// GetNumberID normalizes a raw phone number into the canonical JID the
// protocol addresses it by.
func (d *WhatsAppDriver) GetNumberID(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty number")
	}
	if !strings.Contains(raw, "@") {
		raw = raw + "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return "", fmt.Errorf("invalid number format: %w", err)
	}
	return jid.String(), nil
}

func (d *WhatsAppDriver) GetContactName(ctx context.Context, jidStr string) (string, error) {
	jid, err := types.ParseJID(jidStr)
	if err != nil {
		return "", err
	}
	contact, err := d.client.Store.Contacts.GetContact(ctx, jid)
	if err != nil || !contact.Found {
		return jid.User, nil
	}
	if contact.FullName != "" {
		return contact.FullName, nil
	}
	if contact.PushName != "" {
		return contact.PushName, nil
	}
	return jid.User, nil
}

func (d *WhatsAppDriver) Logout(ctx context.Context) error {
	return d.client.Logout(ctx)
}

// Destroy disconnects the client and closes the event stream. The
// channel is closed exactly once; subsequent calls are no-ops.
func (d *WhatsAppDriver) Destroy() error {
	d.client.Disconnect()

	d.evtMu.Lock()
	defer d.evtMu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}

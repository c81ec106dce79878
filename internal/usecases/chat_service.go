package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/interfaces"
)

// ErrClientNotActive is returned when an operation needs a live
// session and the tenant has none.
var ErrClientNotActive = errors.New("whatsapp client doesnt exist or not ready")

// ChatService exposes the chat read/write surface: live chat listings
// from the driver, persisted history from the store, and sending.
type ChatService struct {
	registry *infrastructure.SessionRegistry
	chats    interfaces.ChatStore
	log      waLog.Logger
}

func NewChatService(registry *infrastructure.SessionRegistry, chats interfaces.ChatStore, log waLog.Logger) *ChatService {
	return &ChatService{registry: registry, chats: chats, log: log}
}

// LiveChats lists the tenant's chats from the live session, most
// recently active first, sliced by limit/page.
func (s *ChatService) LiveChats(ctx context.Context, tenantID string, limit, page int) ([]entities.ChatSummary, error) {
	driver, ok := s.registry.Get(tenantID)
	if !ok {
		return nil, ErrClientNotActive
	}

	chats, err := driver.GetChats(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		return chats, nil
	}
	start := page * limit
	if start >= len(chats) {
		return []entities.ChatSummary{}, nil
	}
	end := start + limit
	if end > len(chats) {
		end = len(chats)
	}
	return chats[start:end], nil
}

// StoredChats lists the tenant's persisted chat records.
func (s *ChatService) StoredChats(ctx context.Context, tenantID string) ([]entities.Chat, error) {
	return s.chats.FindByClient(ctx, tenantID)
}

// Messages pages through a chat's persisted history, newest first.
// Page numbering starts at 1.
func (s *ChatService) Messages(ctx context.Context, tenantID, number string, limit, page int) (*entities.MessagePage, error) {
	remoteID := number
	if !strings.Contains(remoteID, "@") {
		remoteID = remoteID + "@s.whatsapp.net"
	}

	chat, err := s.chats.Find(ctx, tenantID, remoteID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("chat não encontrado")
	}

	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	msgs := make([]entities.Message, len(chat.Messages))
	copy(msgs, chat.Messages)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp > msgs[j].Timestamp })

	total := len(msgs)
	totalPages := (total + limit - 1) / limit

	skip := (page - 1) * limit
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	return &entities.MessagePage{
		Messages: msgs[skip:end],
		Pagination: entities.Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalMessages: total,
		},
	}, nil
}

// Send delivers a message (text or media) through the tenant's live
// session. The driver mirrors the sent message into its event stream,
// so the fan-out hub handles broadcast and history persistence; this
// method only resolves the recipient and records the contact name.
func (s *ChatService) Send(ctx context.Context, req entities.SendRequest) (*entities.Message, error) {
	driver, ok := s.registry.Get(req.ClientID)
	if !ok {
		return nil, ErrClientNotActive
	}

	if strings.TrimSpace(req.RemoteID) == "" {
		return nil, errors.New("invalid remoteId provided")
	}

	jid, err := driver.GetNumberID(ctx, req.RemoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get number ID: %w", err)
	}

	contactName, err := driver.GetContactName(ctx, jid)
	if err != nil {
		contactName = req.RemoteID
	}

	var sent entities.Message
	if req.MimeType != "" && req.Media != "" {
		sent, err = driver.SendMedia(ctx, jid, req.MimeType, req.Media, req.Message)
	} else {
		sent, err = driver.SendMessage(ctx, jid, req.Message)
	}
	if err != nil {
		return nil, err
	}

	if err := s.chats.SetContactName(ctx, req.ClientID, jid, contactName); err != nil {
		s.log.Warnf("Failed to record contact name for %s: %v", req.ClientID, err)
	}

	return &sent, nil
}

// AddLabel tags a persisted chat.
func (s *ChatService) AddLabel(ctx context.Context, tenantID, remoteID, label string) error {
	return s.chats.AddLabel(ctx, tenantID, remoteID, label)
}

// RemoveLabel removes a tag from a persisted chat.
func (s *ChatService) RemoveLabel(ctx context.Context, tenantID, remoteID, label string) error {
	return s.chats.RemoveLabel(ctx, tenantID, remoteID, label)
}

// DeleteChat removes a persisted chat record and its history.
func (s *ChatService) DeleteChat(ctx context.Context, tenantID, remoteID string) error {
	return s.chats.Delete(ctx, tenantID, remoteID)
}

// Labels returns the chat record carrying the labels for a pair.
func (s *ChatService) Labels(ctx context.Context, tenantID, remoteID string) (*entities.Chat, error) {
	return s.chats.Find(ctx, tenantID, remoteID)
}

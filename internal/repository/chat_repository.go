package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wppserver/internal/entities"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// AppendMessage upserts the chat keyed by (client_id, remote_id) and
// appends the message to its JSONB history in one statement, so
// concurrent appends for the same pair serialize inside the store.
func (r *ChatRepository) AppendMessage(ctx context.Context, clientID, remoteID string, isGroup bool, contactName string, msg entities.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO chats (client_id, remote_id, is_group, contact_name, messages)
		VALUES ($1, $2, $3, NULLIF($4, ''), jsonb_build_array($5::jsonb))
		ON CONFLICT (client_id, remote_id) DO UPDATE SET
			messages = chats.messages || $5::jsonb,
			contact_name = COALESCE(NULLIF($4, ''), chats.contact_name),
			updated_at = CURRENT_TIMESTAMP
	`, clientID, remoteID, isGroup, contactName, payload)
	return err
}

// SetContactName records the resolved display name without touching
// message history.
func (r *ChatRepository) SetContactName(ctx context.Context, clientID, remoteID, name string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chats (client_id, remote_id, contact_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, remote_id) DO UPDATE SET contact_name = $3
	`, clientID, remoteID, name)
	return err
}

func (r *ChatRepository) Find(ctx context.Context, clientID, remoteID string) (*entities.Chat, error) {
	chat, err := r.scanChat(r.db.QueryRow(ctx, `
		SELECT client_id, remote_id, is_group, COALESCE(contact_name, ''), labels, messages
		FROM chats WHERE client_id = $1 AND remote_id = $2
	`, clientID, remoteID))
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepository) FindByClient(ctx context.Context, clientID string) ([]entities.Chat, error) {
	rows, err := r.db.Query(ctx, `
		SELECT client_id, remote_id, is_group, COALESCE(contact_name, ''), labels, messages
		FROM chats WHERE client_id = $1 ORDER BY updated_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []entities.Chat
	for rows.Next() {
		chat, err := r.scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

func (r *ChatRepository) AddLabel(ctx context.Context, clientID, remoteID, label string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chats SET labels = array_append(labels, $3)
		WHERE client_id = $1 AND remote_id = $2 AND NOT ($3 = ANY(labels))
	`, clientID, remoteID, label)
	return err
}

func (r *ChatRepository) RemoveLabel(ctx context.Context, clientID, remoteID, label string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chats SET labels = array_remove(labels, $3)
		WHERE client_id = $1 AND remote_id = $2
	`, clientID, remoteID, label)
	return err
}

func (r *ChatRepository) Delete(ctx context.Context, clientID, remoteID string) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM chats WHERE client_id = $1 AND remote_id = $2",
		clientID, remoteID)
	return err
}

func (r *ChatRepository) scanChat(row pgx.Row) (*entities.Chat, error) {
	var chat entities.Chat
	var rawMessages []byte
	if err := row.Scan(&chat.ClientID, &chat.RemoteID, &chat.IsGroup, &chat.ContactName, &chat.Labels, &rawMessages); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawMessages, &chat.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &chat, nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wppserver/internal/entities"
)

type QuickReplyRepository struct {
	db *pgxpool.Pool
}

func NewQuickReplyRepository(db *pgxpool.Pool) *QuickReplyRepository {
	return &QuickReplyRepository{db: db}
}

func (r *QuickReplyRepository) Create(ctx context.Context, qr *entities.QuickReply) error {
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		"INSERT INTO quick_replies (id, user_id, title, text) VALUES ($1, $2, $3, $4)",
		qr.ID, qr.UserID, qr.Title, qr.Text)
	return err
}

func (r *QuickReplyRepository) FindByUser(ctx context.Context, userID string) ([]entities.QuickReply, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, user_id, title, text FROM quick_replies WHERE user_id = $1 ORDER BY created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []entities.QuickReply
	for rows.Next() {
		var qr entities.QuickReply
		if err := rows.Scan(&qr.ID, &qr.UserID, &qr.Title, &qr.Text); err != nil {
			return nil, err
		}
		replies = append(replies, qr)
	}
	return replies, rows.Err()
}

// Update returns nil, nil when no template with the id exists.
func (r *QuickReplyRepository) Update(ctx context.Context, id, title, text string) (*entities.QuickReply, error) {
	var qr entities.QuickReply
	err := r.db.QueryRow(ctx, `
		UPDATE quick_replies SET title = $2, text = $3 WHERE id = $1
		RETURNING id, user_id, title, text
	`, id, title, text).Scan(&qr.ID, &qr.UserID, &qr.Title, &qr.Text)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *QuickReplyRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM quick_replies WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

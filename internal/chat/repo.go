package chat

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	SetStatus(ctx context.Context, id string, status Status) error
	AppendMessage(ctx context.Context, m Message) (Message, error)
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
	ListByUser(ctx context.Context, userID string) ([]Session, error)
}

type PGStore struct{ DB *pgxpool.Pool }

func (r *PGStore) Create(ctx context.Context, s Session) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO chats (id, customer_id, artisan_id, product_id, title, description,
		                   budget, reference_image, status, created_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,NULLIF($8,''),$9,$10)`,
		s.ID, s.CustomerID, s.ArtisanID, s.ProductID, s.Title, s.Description,
		s.Budget, s.ReferenceImage, s.Status, s.CreatedAt)
	return err
}

func (r *PGStore) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.DB.QueryRow(ctx, `
		SELECT id, customer_id, artisan_id, COALESCE(product_id, ''), title, description,
		       budget, COALESCE(reference_image, ''), status, created_at
		FROM chats WHERE id=$1`, id).
		Scan(&s.ID, &s.CustomerID, &s.ArtisanID, &s.ProductID, &s.Title, &s.Description,
			&s.Budget, &s.ReferenceImage, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrChatNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *PGStore) SetStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE chats SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrChatNotFound
	}
	return nil
}

func (r *PGStore) AppendMessage(ctx context.Context, m Message) (Message, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, sender_role, content, kind, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING seq`,
		m.ID, m.ChatID, m.SenderID, m.SenderRole, m.Content, m.Kind, m.SentAt).Scan(&m.Seq)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

func (r *PGStore) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, chat_id, sender_id, sender_role, content, kind, sent_at, seq
		FROM chat_messages WHERE chat_id=$1
		ORDER BY sent_at, seq`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderRole,
			&m.Content, &m.Kind, &m.SentAt, &m.Seq); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGStore) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, customer_id, artisan_id, COALESCE(product_id, ''), title, description,
		       budget, COALESCE(reference_image, ''), status, created_at
		FROM chats WHERE customer_id=$1 OR artisan_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.ArtisanID, &s.ProductID, &s.Title,
			&s.Description, &s.Budget, &s.ReferenceImage, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

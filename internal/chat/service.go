package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artivio/marketplace/internal/content"
	"github.com/artivio/marketplace/internal/notify"
	"github.com/artivio/marketplace/internal/users"
)

// Notifier is the fanout channel for freshly persisted messages.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Service struct {
	Store    Store
	Users    users.Repo
	Content  content.Store
	Notifier Notifier
	Log      *zap.SugaredLogger
}

type OpenInput struct {
	CustomerID     string
	ArtisanID      string
	ProductID      string
	Title          string
	Description    string
	Budget         *decimal.Decimal
	ReferenceImage []byte
	ImageName      string
}

// Open starts a new negotiation session in status PENDING. Self-negotiation
// is rejected, and both parties must exist.
func (s *Service) Open(ctx context.Context, in OpenInput) (Session, error) {
	if in.CustomerID == in.ArtisanID {
		return Session{}, ErrSelfChat
	}
	if _, err := s.Users.Find(ctx, in.CustomerID); err != nil {
		return Session{}, err
	}
	if _, err := s.Users.Find(ctx, in.ArtisanID); err != nil {
		return Session{}, err
	}

	sess := Session{
		ID:          uuid.NewString(),
		CustomerID:  in.CustomerID,
		ArtisanID:   in.ArtisanID,
		ProductID:   in.ProductID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if len(in.ReferenceImage) > 0 {
		path, err := s.Content.Store(ctx, in.ReferenceImage, in.ImageName)
		if err != nil {
			return Session{}, err
		}
		sess.ReferenceImage = path
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

type PostMessageInput struct {
	ChatID         string
	SenderID       string
	Content        string
	Kind           MessageKind
	Attachment     []byte
	AttachmentName string
}

// PostMessage appends a message with a server-assigned timestamp. A binary
// attachment is written to the content store and forces the kind to IMAGE.
// The session status is left untouched. Notification is best effort.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (Message, error) {
	sess, err := s.Store.Get(ctx, in.ChatID)
	if err != nil {
		return Message{}, err
	}
	if !sess.IsParticipant(in.SenderID) {
		return Message{}, ErrNotParticipant
	}

	kind := in.Kind
	if kind == "" {
		kind = KindText
	}
	body := in.Content
	if len(in.Attachment) > 0 {
		path, err := s.Content.Store(ctx, in.Attachment, in.AttachmentName)
		if err != nil {
			return Message{}, err
		}
		body = path
		kind = KindImage
	}

	msg := Message{
		ID:         uuid.NewString(),
		ChatID:     sess.ID,
		SenderID:   in.SenderID,
		SenderRole: sess.RoleOf(in.SenderID),
		Content:    body,
		Kind:       kind,
		SentAt:     time.Now().UTC(),
	}
	msg, err = s.Store.AppendMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	if s.Notifier != nil {
		if err := s.Notifier.Publish(ctx, notify.ChatTopic(sess.ID), msg); err != nil {
			s.Log.Warnw("chat notify failed", "chat_id", sess.ID, "err", err)
		}
	}
	return msg, nil
}

// Get returns the session to one of its participants.
func (s *Service) Get(ctx context.Context, chatID, requesterID string) (Session, error) {
	sess, err := s.Store.Get(ctx, chatID)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsParticipant(requesterID) {
		return Session{}, ErrNotParticipant
	}
	return sess, nil
}

func (s *Service) ListMessages(ctx context.Context, chatID, requesterID string) ([]Message, error) {
	sess, err := s.Store.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParticipant(requesterID) {
		return nil, ErrNotParticipant
	}
	return s.Store.ListMessages(ctx, sess.ID)
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Session, error) {
	return s.Store.ListByUser(ctx, userID)
}

// Advance moves the session forward to a later status. ORDER_CREATED cannot
// be entered here; that stamp belongs to order creation.
func (s *Service) Advance(ctx context.Context, chatID, requesterID string, to Status) (Session, error) {
	sess, err := s.Store.Get(ctx, chatID)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsParticipant(requesterID) {
		return Session{}, ErrNotParticipant
	}
	if !CanAdvance(sess.Status, to) {
		return Session{}, ErrIllegalTransition
	}
	if err := s.Store.SetStatus(ctx, sess.ID, to); err != nil {
		return Session{}, err
	}
	sess.Status = to
	return sess, nil
}

// Lookup fetches a session without a participant check. It exists for the
// order pipeline, which authorizes against the session's customer itself.
func (s *Service) Lookup(ctx context.Context, chatID string) (Session, error) {
	return s.Store.Get(ctx, chatID)
}

// MarkOrderCreated stamps the session once an order referencing it has been
// persisted. Legal from PENDING and NEGOTIATING only.
func (s *Service) MarkOrderCreated(ctx context.Context, chatID string) error {
	sess, err := s.Store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if !CanMarkOrderCreated(sess.Status) {
		return ErrIllegalTransition
	}
	return s.Store.SetStatus(ctx, sess.ID, StatusOrderCreated)
}

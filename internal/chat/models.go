// Package chat implements negotiation sessions: a customer-artisan
// conversation that may turn into an order. Every call to Open starts a new
// session; a negotiation is its own deal, never a resumed one.
package chat

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotParticipant    = errors.New("user is not a participant of this chat")
	ErrSelfChat          = errors.New("customer and artisan must be different users")
	ErrIllegalTransition = errors.New("illegal chat status transition")
)

type Status string

const (
	StatusPending      Status = "PENDING"
	StatusNegotiating  Status = "NEGOTIATING"
	StatusOrderCreated Status = "ORDER_CREATED"
	StatusClosed       Status = "CLOSED"
)

type SenderRole string

const (
	RoleCustomer SenderRole = "CUSTOMER"
	RoleArtisan  SenderRole = "ARTISAN"
)

type MessageKind string

const (
	KindText          MessageKind = "TEXT"
	KindImage         MessageKind = "IMAGE"
	KindOrderProposal MessageKind = "ORDER_PROPOSAL"
)

// ParseKind rejects unknown message kinds at the boundary. The empty string
// is accepted and later defaulted to TEXT.
func ParseKind(s string) (MessageKind, bool) {
	switch MessageKind(s) {
	case "", KindText, KindImage, KindOrderProposal:
		return MessageKind(s), true
	}
	return "", false
}

type Session struct {
	ID             string           `json:"id"`
	CustomerID     string           `json:"customer_id"`
	ArtisanID      string           `json:"artisan_id"`
	ProductID      string           `json:"product_id,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Budget         *decimal.Decimal `json:"budget,omitempty"`
	ReferenceImage string           `json:"reference_image,omitempty"`
	Status         Status           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chat_id"`
	SenderID   string      `json:"sender_id"`
	SenderRole SenderRole  `json:"sender_role"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind"`
	SentAt     time.Time   `json:"sent_at"`
	Seq        int64       `json:"-"`
}

// IsParticipant reports whether the user is a party to the session.
func (s Session) IsParticipant(userID string) bool {
	return userID == s.CustomerID || userID == s.ArtisanID
}

// RoleOf derives the sender role by comparing against the stored customer
// id; anyone else already validated as a participant is the artisan.
func (s Session) RoleOf(senderID string) SenderRole {
	if senderID == s.CustomerID {
		return RoleCustomer
	}
	return RoleArtisan
}

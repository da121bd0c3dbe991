// Package orders is the transactional heart of the marketplace: it turns a
// cart (or a negotiated deal) into a ledger entry with point-in-time price
// snapshots, keeps stock consistent through the inventory reconciler, and
// guards every later status change.
package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrIllegalTransition    = errors.New("illegal order status transition")
	ErrNoItems              = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be positive")
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentCOD, PaymentOnline:
		return PaymentMethod(s), true
	}
	return "", false
}

type Order struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	ArtisanID     string          `json:"artisan_id"`
	ChatID        string          `json:"chat_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Status        Status          `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem is one product+quantity row of an order. PriceSnapshot is the
// product's unit price copied at creation time; later catalog price changes
// never touch it.
type OrderItem struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Line is a requested product+quantity pair before pricing.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artivio/marketplace/internal/chat"
	"github.com/artivio/marketplace/internal/events"
	"github.com/artivio/marketplace/internal/inventory"
)

// ChatDirectory is the slice of the chat component order creation needs:
// resolving a referenced session and stamping it once the order exists.
type ChatDirectory interface {
	Lookup(ctx context.Context, chatID string) (chat.Session, error)
	MarkOrderCreated(ctx context.Context, chatID string) error
}

// StatusCache mirrors the latest order status into a fast read path.
type StatusCache interface {
	SetOrderStatus(ctx context.Context, orderID, status string) error
}

// Emitter feeds the order lifecycle event stream.
type Emitter interface {
	Emit(eventType, orderID string, payload any)
}

type Service struct {
	Ledger    Ledger
	Inventory *inventory.Reconciler
	Chats     ChatDirectory
	Cache     StatusCache
	Events    Emitter
	Log       *zap.SugaredLogger
}

type CreateInput struct {
	CustomerID    string
	ArtisanID     string
	ChatID        string
	PaymentMethod string
	Phone         string
	Address       string
	Note          string
	Lines         []Line
}

// Create builds an order from the requested lines. Stock is decremented
// line by line through the reconciler; if any line fails, every decrement
// already applied is restocked before the error is returned, so a rejected
// order leaves all products exactly as they were.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	pm, ok := ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return Order{}, ErrInvalidPaymentMethod
	}
	if len(in.Lines) == 0 {
		return Order{}, ErrNoItems
	}
	for _, ln := range in.Lines {
		if ln.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: product %s", ErrInvalidQuantity, ln.ProductID)
		}
	}

	artisanID := in.ArtisanID
	if in.ChatID != "" {
		sess, err := s.Chats.Lookup(ctx, in.ChatID)
		if err != nil {
			return Order{}, err
		}
		// Only the negotiation's own customer may turn it into an order.
		if sess.CustomerID != in.CustomerID {
			return Order{}, chat.ErrNotParticipant
		}
		if artisanID == "" {
			artisanID = sess.ArtisanID
		}
	}

	var (
		applied []Line
		items   []OrderItem
		total   = decimal.Zero
	)
	for _, ln := range in.Lines {
		p, err := s.Inventory.Decrement(ctx, ln.ProductID, ln.Quantity)
		if err != nil {
			s.compensate(ctx, applied)
			return Order{}, err
		}
		applied = append(applied, ln)

		it := OrderItem{
			ID:            uuid.NewString(),
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      ln.Quantity,
			PriceSnapshot: p.Price,
		}
		items = append(items, it)
		total = total.Add(it.Subtotal())
		if artisanID == "" {
			artisanID = p.ArtisanID
		}
	}

	o := Order{
		ID:            uuid.NewString(),
		CustomerID:    in.CustomerID,
		ArtisanID:     artisanID,
		ChatID:        in.ChatID,
		Total:         total,
		Status:        StatusPending,
		PaymentMethod: pm,
		Phone:         in.Phone,
		Address:       in.Address,
		Note:          in.Note,
		CreatedAt:     time.Now().UTC(),
	}
	for i := range items {
		items[i].OrderID = o.ID
	}
	o.Items = items

	if err := s.Ledger.Create(ctx, o); err != nil {
		s.compensate(ctx, applied)
		return Order{}, err
	}

	if in.ChatID != "" {
		if err := s.Chats.MarkOrderCreated(ctx, in.ChatID); err != nil {
			s.Log.Warnw("chat not advanced to ORDER_CREATED", "chat_id", in.ChatID, "err", err)
		}
	}
	s.afterStatusChange(ctx, o, events.EventOrderCreated,
		events.OrderCreatedPayload{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			ArtisanID:  o.ArtisanID,
			ChatID:     o.ChatID,
			Items:      toItemLines(o.Items),
			Total:      o.Total,
		})
	return o, nil
}

// compensate undoes decrements applied before a failure mid-loop.
func (s *Service) compensate(ctx context.Context, applied []Line) {
	for _, ln := range applied {
		if err := s.Inventory.Restock(ctx, ln.ProductID, ln.Quantity); err != nil {
			s.Log.Errorw("stock compensation failed", "product_id", ln.ProductID,
				"quantity", ln.Quantity, "err", err)
		}
	}
}

func (s *Service) Get(ctx context.Context, orderID string) (Order, error) {
	return s.Ledger.Get(ctx, orderID)
}

func (s *Service) ListMine(ctx context.Context, customerID string) ([]Order, error) {
	return s.Ledger.ListByCustomer(ctx, customerID)
}

// Cancel rejects orders that are shipped, completed, or already cancelled.
// The status write and the restock of every line item are one atomic unit
// in the ledger: an order is never CANCELLED with its stock kept, and a
// failed cancel is reported, not logged away.
func (s *Service) Cancel(ctx context.Context, orderID string) (Order, error) {
	o, err := s.Ledger.Cancel(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	s.afterStatusChange(ctx, o, events.EventOrderCancelled,
		events.OrderCancelledPayload{OrderID: o.ID, Items: toItemLines(o.Items)})
	return o, nil
}

// UpdateStatus overwrites the status for the confirm/ship/complete flow.
// CANCELLED is never a legal source, and never a legal target here: moving
// stock back is the cancel path's job.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status) (Order, error) {
	o, err := s.Ledger.UpdateStatus(ctx, orderID, to)
	if err != nil {
		return Order{}, err
	}
	s.afterStatusChange(ctx, o, events.EventOrderStatusChanged,
		events.OrderStatusChangedPayload{OrderID: o.ID, To: string(o.Status)})
	return o, nil
}

func (s *Service) afterStatusChange(ctx context.Context, o Order, eventType string, payload any) {
	if s.Cache != nil {
		if err := s.Cache.SetOrderStatus(ctx, o.ID, string(o.Status)); err != nil {
			s.Log.Warnw("status cache write failed", "order_id", o.ID, "err", err)
		}
	}
	if s.Events != nil {
		s.Events.Emit(eventType, o.ID, payload)
	}
}

func toItemLines(items []OrderItem) []events.ItemLine {
	out := make([]events.ItemLine, 0, len(items))
	for _, it := range items {
		out = append(out, events.ItemLine{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	return out
}

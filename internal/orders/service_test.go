package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/artivio/marketplace/internal/catalog"
	"github.com/artivio/marketplace/internal/chat"
	"github.com/artivio/marketplace/internal/inventory"
)

type memLedger struct {
	mu     sync.Mutex
	orders map[string]Order
	inv    *inventory.Reconciler
}

func (l *memLedger) Create(ctx context.Context, o Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[o.ID] = o
	return nil
}

func (l *memLedger) Get(ctx context.Context, id string) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (l *memLedger) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Order
	for _, o := range l.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (l *memLedger) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if !CanUpdate(o.Status, to) {
		return Order{}, ErrIllegalTransition
	}
	o.Status = to
	l.orders[id] = o
	return o, nil
}

// Cancel mirrors the atomic unit of the PG ledger: if any restock fails,
// the ones already applied are undone and the status stays put.
func (l *memLedger) Cancel(ctx context.Context, id string) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if !CanCancel(o.Status) {
		return Order{}, ErrIllegalTransition
	}
	var applied []OrderItem
	for _, it := range o.Items {
		if err := l.inv.Restock(ctx, it.ProductID, it.Quantity); err != nil {
			for _, u := range applied {
				_, _ = l.inv.Decrement(ctx, u.ProductID, u.Quantity)
			}
			return Order{}, err
		}
		applied = append(applied, it)
	}
	o.Status = StatusCancelled
	l.orders[id] = o
	return o, nil
}

type fakeChats struct {
	mu       sync.Mutex
	sessions map[string]chat.Session
}

func (f *fakeChats) Lookup(ctx context.Context, chatID string) (chat.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[chatID]
	if !ok {
		return chat.Session{}, chat.ErrChatNotFound
	}
	return s, nil
}

func (f *fakeChats) MarkOrderCreated(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[chatID]
	if !ok {
		return chat.ErrChatNotFound
	}
	if !chat.CanMarkOrderCreated(s.Status) {
		return chat.ErrIllegalTransition
	}
	s.Status = chat.StatusOrderCreated
	f.sessions[chatID] = s
	return nil
}

func newTestService(store catalog.Store) (*Service, *memLedger, *fakeChats) {
	inv := inventory.NewReconciler(store)
	ledger := &memLedger{orders: make(map[string]Order), inv: inv}
	chats := &fakeChats{sessions: make(map[string]chat.Session)}
	svc := &Service{
		Ledger:    ledger,
		Inventory: inv,
		Chats:     chats,
		Log:       zap.NewNop().Sugar(),
	}
	return svc, ledger, chats
}

func seedProduct(t *testing.T, store catalog.Store, id, artisanID, price string, stock, sold int) {
	t.Helper()
	err := store.Save(context.Background(), catalog.Product{
		ID:            id,
		ArtisanID:     artisanID,
		Name:          "handwoven basket " + id,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		QuantitySold:  sold,
		Status:        catalog.ProductActive,
	})
	assert.NoError(t, err)
}

func validInput(lines ...Line) CreateInput {
	return CreateInput{
		CustomerID:    "cust-1",
		PaymentMethod: "COD",
		Phone:         "0912345678",
		Address:       "12 Pottery Lane, Old Quarter",
		Lines:         lines,
	}
}

func TestCreate_ComputesTotalAndDecrementsStock(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "120.50", 5, 10)
	seedProduct(t, store, "p2", "art-1", "10.00", 4, 0)
	svc, ledger, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(
		Line{ProductID: "p1", Quantity: 3},
		Line{ProductID: "p2", Quantity: 2},
	))

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentCOD, o.PaymentMethod)
	assert.Len(t, o.Items, 2)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("381.50")), "total=%s", o.Total)

	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	assert.True(t, o.Total.Equal(sum))

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 2, p1.StockQuantity)
	assert.Equal(t, 13, p1.QuantitySold)
	p2, _ := store.Find(context.Background(), "p2")
	assert.Equal(t, 2, p2.StockQuantity)
	assert.Equal(t, 2, p2.QuantitySold)

	stored, err := ledger.Get(context.Background(), o.ID)
	assert.NoError(t, err)
	assert.True(t, stored.Total.Equal(o.Total))
}

func TestCreate_SnapshotSurvivesCatalogPriceChange(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "50.00", 5, 0)
	svc, ledger, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 1}))
	assert.NoError(t, err)

	p, _ := store.Find(context.Background(), "p1")
	p.Price = decimal.RequireFromString("999.00")
	assert.NoError(t, store.Save(context.Background(), p))

	stored, _ := ledger.Get(context.Background(), o.ID)
	assert.True(t, stored.Items[0].PriceSnapshot.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("50.00")))
}

func TestCreate_ValidationFailures(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "10.00", 5, 0)
	svc, _, _ := newTestService(store)

	in := validInput(Line{ProductID: "p1", Quantity: 1})
	in.PaymentMethod = "BARTER"
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.Create(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 0}))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity, "rejected requests must not move stock")
}

func TestCreate_InsufficientStockRollsBackEarlierLines(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "20.00", 5, 1)
	seedProduct(t, store, "p2", "art-1", "30.00", 1, 0)
	svc, ledger, _ := newTestService(store)

	_, err := svc.Create(context.Background(), validInput(
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "p2", Quantity: 3},
	))

	var stockErr *inventory.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity, "p1 decrement must be compensated")
	assert.Equal(t, 1, p1.QuantitySold)
	p2, _ := store.Find(context.Background(), "p2")
	assert.Equal(t, 1, p2.StockQuantity)

	assert.Empty(t, ledger.orders, "no partial order may be persisted")
}

func TestCreate_UnknownProductRollsBackEarlierLines(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "20.00", 5, 0)
	svc, ledger, _ := newTestService(store)

	_, err := svc.Create(context.Background(), validInput(
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "ghost", Quantity: 1},
	))

	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity)
	assert.Empty(t, ledger.orders)
}

func TestCreate_FromChatSession(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "15.00", 5, 0)
	svc, _, chats := newTestService(store)
	chats.sessions["chat-1"] = chat.Session{
		ID: "chat-1", CustomerID: "cust-1", ArtisanID: "art-1", Status: chat.StatusPending,
	}

	in := validInput(Line{ProductID: "p1", Quantity: 1})
	in.ChatID = "chat-1"
	o, err := svc.Create(context.Background(), in)

	assert.NoError(t, err)
	assert.Equal(t, "chat-1", o.ChatID)
	assert.Equal(t, "art-1", o.ArtisanID, "artisan comes from the session")
	assert.Equal(t, chat.StatusOrderCreated, chats.sessions["chat-1"].Status)
}

func TestCreate_FromChatSession_ForeignCustomerForbidden(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "15.00", 5, 0)
	svc, ledger, chats := newTestService(store)
	chats.sessions["chat-1"] = chat.Session{
		ID: "chat-1", CustomerID: "cust-1", ArtisanID: "art-1", Status: chat.StatusNegotiating,
	}

	in := validInput(Line{ProductID: "p1", Quantity: 1})
	in.CustomerID = "cust-2"
	in.ChatID = "chat-1"
	_, err := svc.Create(context.Background(), in)

	assert.ErrorIs(t, err, chat.ErrNotParticipant)
	assert.Equal(t, chat.StatusNegotiating, chats.sessions["chat-1"].Status)
	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity)
	assert.Empty(t, ledger.orders)
}

func TestCreate_UnknownChat(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "15.00", 5, 0)
	svc, _, _ := newTestService(store)

	in := validInput(Line{ProductID: "p1", Quantity: 1})
	in.ChatID = "ghost"
	_, err := svc.Create(context.Background(), in)

	assert.ErrorIs(t, err, chat.ErrChatNotFound)
}

func TestCreate_ArtisanResolvedFromProduct(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-9", "15.00", 5, 0)
	svc, _, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 1}))

	assert.NoError(t, err)
	assert.Equal(t, "art-9", o.ArtisanID)
}

func TestCancel_RestoresStockAndSoldCounters(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "120.50", 5, 10)
	svc, _, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 3}))
	assert.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("361.50")))

	cancelled, err := svc.Cancel(context.Background(), o.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity)
	assert.Equal(t, 10, p1.QuantitySold)
}

func TestCancel_RejectedWithoutStockMutation(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "10.00", 5, 0)
	svc, _, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 2}))
	assert.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusShipped)
	assert.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 3, p1.StockQuantity, "rejected cancel must not restock")
	assert.Equal(t, 2, p1.QuantitySold)
}

func TestCancel_SecondAttemptRejected(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "10.00", 5, 0)
	svc, _, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 2}))
	assert.NoError(t, err)

	_, err = svc.Cancel(context.Background(), o.ID)
	assert.NoError(t, err)
	_, err = svc.Cancel(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity, "stock is returned exactly once")
	assert.Equal(t, 0, p1.QuantitySold)
}

// failingStore breaks Update for one product id, leaving the rest intact.
type failingStore struct {
	catalog.Store
	failID string
}

func (s *failingStore) Update(ctx context.Context, id string, fn func(p *catalog.Product) error) error {
	if id == s.failID {
		return errors.New("connection reset by peer")
	}
	return s.Store.Update(ctx, id, fn)
}

func TestCancel_RestockFailureSurfacesAndKeepsStatus(t *testing.T) {
	base := catalog.NewMemStore()
	seedProduct(t, base, "p1", "art-1", "10.00", 5, 0)
	seedProduct(t, base, "p2", "art-1", "20.00", 4, 0)
	store := &failingStore{Store: base}
	svc, ledger, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(
		Line{ProductID: "p1", Quantity: 2},
		Line{ProductID: "p2", Quantity: 1},
	))
	assert.NoError(t, err)

	store.failID = "p2"
	_, err = svc.Cancel(context.Background(), o.ID)
	assert.Error(t, err, "a failed restock must reach the caller")

	got, _ := ledger.Get(context.Background(), o.ID)
	assert.Equal(t, StatusPending, got.Status, "the order must not end up cancelled")
	p1, _ := base.Find(context.Background(), "p1")
	assert.Equal(t, 3, p1.StockQuantity, "no line may stay half restored")
	p2, _ := base.Find(context.Background(), "p2")
	assert.Equal(t, 3, p2.StockQuantity)

	store.failID = ""
	cancelled, err := svc.Cancel(context.Background(), o.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	p1, _ = base.Find(context.Background(), "p1")
	assert.Equal(t, 5, p1.StockQuantity)
	p2, _ = base.Find(context.Background(), "p2")
	assert.Equal(t, 4, p2.StockQuantity)
}

func TestCancel_UnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(catalog.NewMemStore())

	_, err := svc.Cancel(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus_Guards(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "10.00", 5, 0)
	svc, _, _ := newTestService(store)

	o, err := svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 1}))
	assert.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)

	// CANCELLED is not a legal target here; cancellation moves stock.
	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = svc.UpdateStatus(context.Background(), o.ID, Status("DELIVERED"))
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = svc.Cancel(context.Background(), o.ID)
	assert.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrIllegalTransition, "cancelled orders are frozen")
}

func TestCreate_ConcurrentCheckoutOfLastUnit(t *testing.T) {
	store := catalog.NewMemStore()
	seedProduct(t, store, "p1", "art-1", "10.00", 1, 0)
	svc, ledger, _ := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), validInput(Line{ProductID: "p1", Quantity: 1}))
		}(i)
	}
	wg.Wait()

	winners := 0
	var stockErr *inventory.InsufficientStockError
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, ledger.orders, 1)

	p1, _ := store.Find(context.Background(), "p1")
	assert.Equal(t, 0, p1.StockQuantity, "stock never goes negative")
}

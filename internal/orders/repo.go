package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artivio/marketplace/internal/inventory"
)

// Ledger persists orders and their line items. Orders own their items:
// both are written in one unit and read back together.
type Ledger interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// UpdateStatus moves the order for the confirm/ship/complete flow.
	// CanUpdate is checked against the current status under the same row
	// lock as the write; otherwise ErrIllegalTransition.
	UpdateStatus(ctx context.Context, id string, to Status) (Order, error)
	// Cancel flips the order to CANCELLED and restores every line item's
	// stock in one atomic unit. The guard (CanCancel), the status write,
	// and all restocks commit or roll back together.
	Cancel(ctx context.Context, id string) (Order, error)
}

type PGLedger struct{ DB *pgxpool.Pool }

func (r *PGLedger) Create(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, artisan_id, chat_id, total_price, status,
		                    payment_method, phone_number, address, note, created_at)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.CustomerID, o.ArtisanID, o.ChatID, o.Total, o.Status,
		o.PaymentMethod, o.Phone, o.Address, o.Note, o.CreatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price_snapshot)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.PriceSnapshot)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGLedger) Get(ctx context.Context, id string) (Order, error) {
	o, err := r.scanOrder(ctx, r.DB, id)
	if err != nil {
		return Order{}, err
	}
	items, err := r.loadItems(ctx, r.DB, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *PGLedger) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, customer_id, artisan_id, COALESCE(chat_id, ''), total_price, status,
		       payment_method, phone_number, address, COALESCE(note, ''), created_at
		FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.ArtisanID, &o.ChatID, &o.Total,
			&o.Status, &o.PaymentMethod, &o.Phone, &o.Address, &o.Note, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.loadItems(ctx, r.DB, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *PGLedger) UpdateStatus(ctx context.Context, id string, to Status) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.lockStatus(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanUpdate(current, to) {
		return Order{}, ErrIllegalTransition
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, to); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return r.Get(ctx, id)
}

func (r *PGLedger) Cancel(ctx context.Context, id string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.lockStatus(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanCancel(current) {
		return Order{}, ErrIllegalTransition
	}
	items, err := r.loadItems(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	for _, it := range items {
		if err := inventory.RestockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return Order{}, err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, StatusCancelled); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return r.Get(ctx, id)
}

// lockStatus reads the order's status under FOR UPDATE, holding the row
// until the surrounding transaction ends.
func (r *PGLedger) lockStatus(ctx context.Context, tx pgx.Tx, id string) (Status, error) {
	var current Status
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return current, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PGLedger) scanOrder(ctx context.Context, q querier, id string) (Order, error) {
	var o Order
	err := q.QueryRow(ctx, `
		SELECT id, customer_id, artisan_id, COALESCE(chat_id, ''), total_price, status,
		       payment_method, phone_number, address, COALESCE(note, ''), created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.ArtisanID, &o.ChatID, &o.Total, &o.Status,
			&o.PaymentMethod, &o.Phone, &o.Address, &o.Note, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PGLedger) loadItems(ctx context.Context, q querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price_snapshot
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.PriceSnapshot); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

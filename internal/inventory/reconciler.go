// Package inventory owns the stock_quantity and quantity_sold arithmetic.
// Order creation and cancellation go through here; nothing else in the
// codebase touches those two counters.
package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/artivio/marketplace/internal/catalog"
)

// InsufficientStockError identifies the product that made an order
// unfulfillable, with the quantities involved.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

type Reconciler struct {
	store catalog.Store
}

func NewReconciler(store catalog.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Decrement takes qty units out of stock and adds them to quantity_sold in
// one step. The sufficiency check and the write run under the store's
// per-product lock, so two concurrent checkouts of the last unit cannot
// both pass the guard. Returns the decremented product; its price was read
// under the lock, so callers can snapshot it.
func (r *Reconciler) Decrement(ctx context.Context, productID string, qty int) (catalog.Product, error) {
	var out catalog.Product
	err := r.store.Update(ctx, productID, func(p *catalog.Product) error {
		if qty > p.StockQuantity {
			return &InsufficientStockError{
				ProductID: productID, Requested: qty, Available: p.StockQuantity,
			}
		}
		p.StockQuantity -= qty
		p.QuantitySold += qty
		out = *p
		return nil
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return out, nil
}

// Restock reverses a prior decrement. quantity_sold is an informational
// running counter and is clamped at zero rather than forced to mirror
// every decrement/restock pair.
func (r *Reconciler) Restock(ctx context.Context, productID string, qty int) error {
	return r.store.Update(ctx, productID, func(p *catalog.Product) error {
		p.StockQuantity += qty
		p.QuantitySold -= qty
		if p.QuantitySold < 0 {
			p.QuantitySold = 0
		}
		return nil
	})
}

// RestockTx is Restock inside a caller-owned transaction, for flows whose
// stock restore must commit or roll back together with their own writes.
func RestockTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2,
		    quantity_sold = GREATEST(quantity_sold - $2, 0),
		    updated_at = now()
		WHERE id=$1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

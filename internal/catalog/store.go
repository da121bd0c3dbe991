package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the catalog surface the inventory reconciler works against.
type Store interface {
	Find(ctx context.Context, id string) (Product, error)
	Save(ctx context.Context, p Product) error
	List(ctx context.Context) ([]Product, error)
	// Update applies fn to the product under an exclusive per-row lock and
	// persists the result. Read, fn, and write form one atomic unit; an
	// error from fn discards the write.
	Update(ctx context.Context, id string, fn func(p *Product) error) error
}

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Find(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, artisan_id, name, description, price, stock_quantity, quantity_sold,
		       COALESCE(image, ''), status, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.QuantitySold, &p.Image, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PGStore) Save(ctx context.Context, p Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products (id, artisan_id, name, description, price, stock_quantity,
		                      quantity_sold, image, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			artisan_id=EXCLUDED.artisan_id, name=EXCLUDED.name,
			description=EXCLUDED.description, price=EXCLUDED.price,
			stock_quantity=EXCLUDED.stock_quantity, quantity_sold=EXCLUDED.quantity_sold,
			image=EXCLUDED.image, status=EXCLUDED.status, updated_at=now()`,
		p.ID, p.ArtisanID, p.Name, p.Description, p.Price, p.StockQuantity,
		p.QuantitySold, p.Image, p.Status)
	return err
}

func (s *PGStore) Update(ctx context.Context, id string, fn func(p *Product) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Product
	err = tx.QueryRow(ctx, `
		SELECT id, artisan_id, name, description, price, stock_quantity, quantity_sold,
		       COALESCE(image, ''), status, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.QuantitySold, &p.Image, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if err := fn(&p); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE products SET price=$2, stock_quantity=$3, quantity_sold=$4, status=$5, updated_at=now()
		WHERE id=$1`, p.ID, p.Price, p.StockQuantity, p.QuantitySold, p.Status)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) List(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, artisan_id, name, description, price, stock_quantity, quantity_sold,
		       COALESCE(image, ''), status, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.ArtisanID, &p.Name, &p.Description, &p.Price,
			&p.StockQuantity, &p.QuantitySold, &p.Image, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

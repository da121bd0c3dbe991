package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStatus string

const (
	ProductActive ProductStatus = "ACTIVE"
	ProductHidden ProductStatus = "HIDDEN"
)

type Product struct {
	ID            string          `json:"id"`
	ArtisanID     string          `json:"artisan_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	QuantitySold  int             `json:"quantity_sold"`
	Image         string          `json:"image,omitempty"`
	Status        ProductStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

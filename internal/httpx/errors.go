package httpx

import (
	"errors"
	"net/http"

	"github.com/artivio/marketplace/internal/catalog"
	"github.com/artivio/marketplace/internal/chat"
	"github.com/artivio/marketplace/internal/inventory"
	"github.com/artivio/marketplace/internal/orders"
	"github.com/artivio/marketplace/internal/users"
)

type errBody struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

// statusFor maps domain errors onto HTTP codes. Anything unrecognized is a
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrChatNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrSelfChat),
		errors.Is(err, orders.ErrInvalidPaymentMethod),
		errors.Is(err, orders.ErrNoItems),
		errors.Is(err, orders.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrIllegalTransition),
		errors.Is(err, chat.ErrIllegalTransition):
		return http.StatusConflict
	}
	var stock *inventory.InsufficientStockError
	if errors.As(err, &stock) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	body := errBody{Error: err.Error()}
	if code == http.StatusInternalServerError {
		body.Error = "internal error"
	}
	var stock *inventory.InsufficientStockError
	if errors.As(err, &stock) {
		body.ProductID = stock.ProductID
		body.Requested = stock.Requested
		body.Available = stock.Available
	}
	writeJSON(w, code, body)
}

package httpx

import (
	"encoding/json"
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/artivio/marketplace/internal/catalog"
	"github.com/artivio/marketplace/internal/orders"
	"github.com/artivio/marketplace/internal/redisx"
)

var phonePattern = regexp.MustCompile(`^0\d{9}$`)

type OrdersHandler struct {
	Orders  *orders.Service
	Catalog catalog.Store
	Cache   *redisx.StatusCache
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.create)
	r.Get("/orders/mine", h.listMine)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/{id}/cancel", h.cancel)
	r.Put("/orders/{id}/status", h.updateStatus)
	r.Get("/products", h.listProducts)
}

type createOrderReq struct {
	ArtisanID     string        `json:"artisan_id,omitempty"`
	ChatID        string        `json:"chat_id,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	Note          string        `json:"note,omitempty"`
	Items         []orders.Line `json:"items"`
}

func (r createOrderReq) validate() string {
	if !phonePattern.MatchString(r.Phone) {
		return "phone must be 10 digits starting with 0"
	}
	if utf8.RuneCountInString(r.Address) < 10 {
		return "address must be at least 10 characters"
	}
	if utf8.RuneCountInString(r.Note) > 200 {
		return "note must be at most 200 characters"
	}
	return ""
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	customerID := requesterID(r)
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "missing user"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: msg})
		return
	}

	o, err := h.Orders.Create(r.Context(), orders.CreateInput{
		CustomerID:    customerID,
		ArtisanID:     req.ArtisanID,
		ChatID:        req.ChatID,
		PaymentMethod: req.PaymentMethod,
		Phone:         req.Phone,
		Address:       req.Address,
		Note:          req.Note,
		Lines:         req.Items,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus serves the cached status when Redis has it, falling back to the
// ledger and refilling the cache.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if h.Cache != nil {
		if s, err := h.Cache.GetOrderStatus(r.Context(), orderID); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}
	o, err := h.Orders.Get(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.SetOrderStatus(r.Context(), orderID, string(o.Status))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(o.Status)})
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	uid := requesterID(r)
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "missing user"})
		return
	}
	out, err := h.Orders.ListMine(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	st, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "unknown status"})
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), st)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

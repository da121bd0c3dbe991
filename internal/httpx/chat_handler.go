package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/artivio/marketplace/internal/chat"
)

type ChatHandler struct {
	Chats *chat.Service
}

func (h *ChatHandler) Register(r *chi.Mux) {
	r.Post("/chats", h.open)
	r.Get("/chats/mine", h.listMine)
	r.Get("/chats/{id}", h.get)
	r.Put("/chats/{id}/status", h.advance)
	r.Post("/chats/{id}/messages", h.postMessage)
	r.Get("/chats/{id}/messages", h.listMessages)
}

type openChatReq struct {
	ArtisanID      string           `json:"artisan_id"`
	ProductID      string           `json:"product_id,omitempty"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Budget         *decimal.Decimal `json:"budget,omitempty"`
	ReferenceImage []byte           `json:"reference_image,omitempty"`
	ImageName      string           `json:"image_name,omitempty"`
}

func (h *ChatHandler) open(w http.ResponseWriter, r *http.Request) {
	var req openChatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	customerID := requesterID(r)
	if customerID == "" || req.ArtisanID == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "missing fields"})
		return
	}

	sess, err := h.Chats.Open(r.Context(), chat.OpenInput{
		CustomerID:     customerID,
		ArtisanID:      req.ArtisanID,
		ProductID:      req.ProductID,
		Title:          req.Title,
		Description:    req.Description,
		Budget:         req.Budget,
		ReferenceImage: req.ReferenceImage,
		ImageName:      req.ImageName,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *ChatHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Chats.Get(r.Context(), chi.URLParam(r, "id"), requesterID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *ChatHandler) listMine(w http.ResponseWriter, r *http.Request) {
	uid := requesterID(r)
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "missing user"})
		return
	}
	out, err := h.Chats.ListMine(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type advanceChatReq struct {
	Status string `json:"status"`
}

func (h *ChatHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceChatReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	st, ok := chat.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "unknown status"})
		return
	}
	sess, err := h.Chats.Advance(r.Context(), chi.URLParam(r, "id"), requesterID(r), st)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type postMessageReq struct {
	Content        string `json:"content,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Attachment     []byte `json:"attachment,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`
}

func (h *ChatHandler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	if req.Content == "" && len(req.Attachment) == 0 {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "empty message"})
		return
	}
	kind, ok := chat.ParseKind(req.Kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "unknown message kind"})
		return
	}
	msg, err := h.Chats.PostMessage(r.Context(), chat.PostMessageInput{
		ChatID:         chi.URLParam(r, "id"),
		SenderID:       requesterID(r),
		Content:        req.Content,
		Kind:           kind,
		Attachment:     req.Attachment,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	out, err := h.Chats.ListMessages(r.Context(), chi.URLParam(r, "id"), requesterID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

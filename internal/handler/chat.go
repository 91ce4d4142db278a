package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/oas"
)

// CreateConversation starts an assistant conversation.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := h.bridge.OpenConversation(r.Context())
	if err != nil {
		writeError(w, r, err, errReply{Message: "Failed to create conversation", Apology: true})
		return
	}
	writeJSON(w, http.StatusOK, oas.Conversation{ConversationID: id})
}

// SendMessage relays one message and returns the assistant's full reply.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	onErr := errReply{Message: "Failed to send message", Apology: true}

	var req oas.SendMessage
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, onErr)
		return
	}
	reply, err := h.bridge.Send(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}
	writeJSON(w, http.StatusOK, oas.Reply{Response: reply})
}

// GetChat returns the session chat, seeded with the welcome message.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	st, err := h.chats.State(r.Context(), sessionFrom(r.Context()))
	respondChat(w, r, st, err)
}

// OpenChat opens the chat window, starting a conversation if needed.
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	st, err := h.chats.Open(r.Context(), sessionFrom(r.Context()))
	respondChat(w, r, st, err)
}

// SendChatMessage appends a message and the assistant's reply.
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req oas.ChatMessage
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, errReply{Apology: true})
		return
	}
	st, err := h.chats.Send(r.Context(), sessionFrom(r.Context()), req.Message)
	respondChat(w, r, st, err)
}

// UpdateChatView stores the window flags. Omitted flags are kept.
func (h *Handler) UpdateChatView(w http.ResponseWriter, r *http.Request) {
	var req oas.ChatView
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, errReply{})
		return
	}
	session := sessionFrom(r.Context())
	current, err := h.chats.State(r.Context(), session)
	if err != nil {
		writeError(w, r, err, errReply{})
		return
	}
	open, minimized := current.Open, current.Minimized
	if req.OpenSet {
		open = req.Open
	}
	if req.MinimizedSet {
		minimized = req.Minimized
	}

	st, err := h.chats.SetView(r.Context(), session, open, minimized)
	respondChat(w, r, st, err)
}

// ResetChat returns the chat to its initial state.
func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	st, err := h.chats.Reset(r.Context(), sessionFrom(r.Context()))
	respondChat(w, r, st, err)
}

// respondChat writes st. An assistant failure is not an error for session
// routes: the saved state already carries the apology.
func respondChat(w http.ResponseWriter, r *http.Request, st chat.State, err error) {
	if errors.Is(err, chat.ErrUnavailable) && len(st.Messages) > 0 {
		zctx.From(r.Context()).Warn("Chat assistant unavailable", zap.Error(err))
		err = nil
	}
	if err != nil {
		writeError(w, r, err, errReply{Apology: true})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

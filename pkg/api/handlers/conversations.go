package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/engine"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
)

// RegisterConversations registers direct-chat endpoints backed by the
// local durable cache.
func RegisterConversations(r *mux.Router, eng *engine.Engine) {
	r.HandleFunc("/conversations", listConversations).Methods(http.MethodGet)
	r.HandleFunc("/conversations", clearConversations).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{counterpart}/history", getHistory(eng)).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{counterpart}/messages", sendDirect(eng)).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{counterpart}/read", markRead(eng)).Methods(http.MethodPost)
}

func convKey(eng *engine.Engine, r *http.Request) models.ConversationKey {
	return models.ConversationKey{
		LocalUserID:   eng.LocalUser().ID,
		CounterpartID: mux.Vars(r)["counterpart"],
		TopicID:       r.URL.Query().Get("topic"),
	}
}

func listConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := store.ListConversations()
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, convs)
}

func clearConversations(w http.ResponseWriter, r *http.Request) {
	if err := store.ClearAll(); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func getHistory(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := store.LoadHistory(convKey(eng, r))
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, history)
	}
}

func sendDirect(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendReq
		if !decodeJSON(w, r, &req) {
			return
		}
		vars := mux.Vars(r)
		s, _, err := eng.OpenDirect(vars["counterpart"], r.URL.Query().Get("topic"))
		if err != nil {
			WriteError(w, err)
			return
		}
		draft, err := s.Send(r.Context(), req.Content, req.Attachments)
		if err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, draft)
	}
}

func markRead(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.MarkRead(convKey(eng, r)); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

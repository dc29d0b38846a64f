package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/engine"
)

// RegisterFeeds registers group feed endpoints.
func RegisterFeeds(r *mux.Router, eng *engine.Engine) {
	r.HandleFunc("/groups/{id}/feed", getFeed(eng)).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/typing", getTyping(eng)).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}", leaveGroup(eng)).Methods(http.MethodDelete)
	r.HandleFunc("/groups/{id}/messages", sendMessage(eng)).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}/messages/{mid}", editMessage(eng)).Methods(http.MethodPatch)
	r.HandleFunc("/groups/{id}/messages/{mid}", deleteMessage(eng)).Methods(http.MethodDelete)
	r.HandleFunc("/groups/{id}/messages/{mid}/retry", retryMessage(eng)).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}/messages/{mid}/discard", discardMessage(eng)).Methods(http.MethodPost)
	r.HandleFunc("/groups/{id}/messages/{mid}/reactions", toggleReaction(eng)).Methods(http.MethodPost)
}

func getFeed(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := eng.OpenGroup(mux.Vars(r)["id"])
		writeJSON(w, s.Snapshot())
	}
}

func getTyping(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.Typing().Snapshot(mux.Vars(r)["id"]))
	}
}

func leaveGroup(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng.CloseGroup(mux.Vars(r)["id"])
		w.WriteHeader(http.StatusNoContent)
	}
}

type sendReq struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

func sendMessage(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendReq
		if !decodeJSON(w, r, &req) {
			return
		}
		s := eng.OpenGroup(mux.Vars(r)["id"])
		draft, err := s.Send(r.Context(), req.Content, req.Attachments)
		if err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, draft)
	}
}

func editMessage(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendReq
		if !decodeJSON(w, r, &req) {
			return
		}
		vars := mux.Vars(r)
		s := eng.OpenGroup(vars["id"])
		if err := s.Edit(r.Context(), vars["mid"], req.Content); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteMessage(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		s := eng.OpenGroup(vars["id"])
		if err := s.Delete(r.Context(), vars["mid"]); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func retryMessage(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		s := eng.OpenGroup(vars["id"])
		if err := s.Retry(r.Context(), vars["mid"]); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func discardMessage(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		s := eng.OpenGroup(vars["id"])
		if err := s.Discard(r.Context(), vars["mid"]); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reactReq struct {
	Emoji string `json:"emoji"`
}

func toggleReaction(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reactReq
		if !decodeJSON(w, r, &req) {
			return
		}
		vars := mux.Vars(r)
		msg, err := eng.React(r.Context(), vars["id"], vars["mid"], req.Emoji)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, msg)
	}
}

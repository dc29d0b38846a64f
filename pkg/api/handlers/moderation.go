package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/engine"
	"chatsync/pkg/models"
)

// RegisterModeration registers the join-request queue and member
// moderation endpoints.
func RegisterModeration(r *mux.Router, eng *engine.Engine) {
	r.HandleFunc("/groups/{id}/pending", getPending(eng)).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/roster", getRoster(eng)).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/moderation/{action}", moderate(eng)).Methods(http.MethodPost)
}

func getPending(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := eng.Moderation(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, q.Pending())
	}
}

func getRoster(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := eng.Moderation(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, q.Roster())
	}
}

type moderationReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

func moderate(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moderationReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}
		vars := mux.Vars(r)
		q, err := eng.Moderation(r.Context(), vars["id"])
		if err != nil {
			WriteError(w, err)
			return
		}
		switch vars["action"] {
		case "approve":
			err = q.Approve(r.Context(), req.UserID)
		case "reject":
			err = q.Reject(r.Context(), req.UserID)
		case "role":
			err = q.SetRole(r.Context(), req.UserID, models.Role(req.Role))
		case "ban":
			err = q.Ban(r.Context(), req.UserID)
		case "remove":
			err = q.Remove(r.Context(), req.UserID)
		default:
			http.Error(w, "unknown action", http.StatusNotFound)
			return
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, struct {
			Pending []models.Member `json:"pending"`
			Roster  []models.Member `json:"roster"`
		}{Pending: q.Pending(), Roster: q.Roster()})
	}
}

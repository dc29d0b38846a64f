// Package api is the local HTTP surface exposing the engine's reactive
// state to UI collaborators: feed snapshots, typing sets, pending
// requests and the error taxonomy mapped onto status codes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatsync/pkg/api/handlers"
	"chatsync/pkg/engine"
)

// Handler builds the local surface router.
func Handler(eng *engine.Engine) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterFeeds(v1, eng)
	handlers.RegisterConversations(v1, eng)
	handlers.RegisterModeration(v1, eng)
	return r
}

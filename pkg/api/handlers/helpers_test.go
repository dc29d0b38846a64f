package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatsync/pkg/errdefs"
)

func TestStatusFor(t *testing.T) {
	cases := map[errdefs.Kind]int{
		errdefs.KindNetworkUnavailable:    http.StatusServiceUnavailable,
		errdefs.KindAuthenticationMissing: http.StatusUnauthorized,
		errdefs.KindAuthorizationDenied:   http.StatusForbidden,
		errdefs.KindServerRejected:        http.StatusUnprocessableEntity,
		errdefs.Kind(""):                  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := StatusFor(kind); got != want {
			t.Fatalf("%q mapped to %d, want %d", kind, got, want)
		}
	}
}

func TestWriteErrorBodyCarriesKind(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errdefs.New(errdefs.KindAuthorizationDenied, "not a moderator"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["kind"] != string(errdefs.KindAuthorizationDenied) {
		t.Fatalf("kind missing from body: %v", body)
	}
	if body["error"] == "" {
		t.Fatal("error message missing from body")
	}
}

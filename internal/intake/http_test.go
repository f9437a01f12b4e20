package intake

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestHTTPHandlerHealth(t *testing.T) {
	f := newServiceFixture(t)
	h := NewHTTPHandler(f.service, zap.NewNop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHTTPHandlerAcceptsNotification(t *testing.T) {
	f := newServiceFixture(t)
	f.store.objects[storeKey("discovery-raw", "caseA/notes.xyz")] = []byte("text")
	h := NewHTTPHandler(f.service, zap.NewNop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	payload := `{"type": "storage.object.v1.finalized", "data": {"bucket": "discovery-raw", "name": "caseA/notes.xyz"}}`
	resp, err := http.Post(srv.URL+"/api/v1/events", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	// The unsupported object was handled synchronously.
	if got := f.store.removedKeys(); len(got) != 1 {
		t.Fatalf("removed = %v, want the unsupported object deleted", got)
	}
}

func TestHTTPHandlerRejectsMalformedPayload(t *testing.T) {
	f := newServiceFixture(t)
	h := NewHTTPHandler(f.service, zap.NewNop())
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/events", "application/json", strings.NewReader("{{{"))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

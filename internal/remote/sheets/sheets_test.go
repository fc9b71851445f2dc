package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hargapanel/backend/internal/remote"
)

func TestFetchSnapshotParsesBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`{"locations":[{"Name":"Toko Jakarta"}],"items":[{"sku":"ITM001","hpp":"1000"}]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	snap, err := client.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Locations) != 1 || snap.Locations[0].Name != "Toko Jakarta" {
		t.Fatalf("unexpected locations: %+v", snap.Locations)
	}
	if float64(snap.Items[0].HPP) != 1000 {
		t.Fatalf("expected coerced hpp 1000, got %v", snap.Items[0].HPP)
	}
}

func TestFetchSnapshotNotConfigured(t *testing.T) {
	client := New("", 0)
	_, err := client.FetchSnapshot(context.Background())
	if !errors.Is(err, remote.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestFetchSnapshotNonOKStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	_, err := client.FetchSnapshot(context.Background())

	var transportErr *remote.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Status != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", transportErr.Status)
	}
}

func TestFetchSnapshotBadJSONIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Apps Script serves an HTML login page when the deployment is
		// not shared publicly.
		_, _ = w.Write([]byte("<html>login required</html>"))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	_, err := client.FetchSnapshot(context.Background())

	var parseErr *remote.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestPushActionSendsTextPlainEnvelope(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	err := client.PushAction(context.Background(), "syncItems", json.RawMessage(`[{"sku":"ITM001"}]`))
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if gotContentType != "text/plain" {
		t.Fatalf("expected text/plain content type, got %q", gotContentType)
	}

	var envelope struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Action != "syncItems" {
		t.Fatalf("expected action syncItems, got %q", envelope.Action)
	}
}

func TestPushActionFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	err := client.PushAction(context.Background(), "syncItems", json.RawMessage(`[]`))

	var transportErr *remote.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

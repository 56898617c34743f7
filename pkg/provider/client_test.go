package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(environments.ProviderConfig{
		BaseURL:     baseURL,
		Instance:    "inst-1",
		Token:       "tok-1",
		ClientToken: "client-tok",
		Timeout:     2 * time.Second,
	})
}

func TestClient_Send_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instances/inst-1/token/tok-1/send-text" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Client-Token"); got != "client-tok" {
			t.Errorf("expected Client-Token header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messageId": "abc123"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	outcome, err := client.Send(context.Background(), "5548991234567", "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
}

func TestClient_Send_ImageRoute(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messageId": "abc123"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	media := "https://example.com/flyer.png"
	if _, err := client.Send(context.Background(), "5548991234567", "hello", &media); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/instances/inst-1/token/tok-1/send-image" {
		t.Errorf("expected image route, got %s", path)
	}
}

func TestClient_Send_RejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "number_not_on_whatsapp"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	outcome, err := client.Send(context.Background(), "5548991234567", "hello", nil)
	if err != nil {
		t.Fatalf("expected a rejection outcome, got error: %v", err)
	}
	if outcome.Success {
		t.Fatal("expected unsuccessful outcome")
	}
	if outcome.ErrorCode != "number_not_on_whatsapp" {
		t.Errorf("expected gateway error code, got %q", outcome.ErrorCode)
	}
}

func TestClient_Send_ServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Send(context.Background(), "5548991234567", "hello", nil)
	if !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}
}

func TestClient_Send_TransportErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := newTestClient(srv.URL)

	_, err := client.Send(context.Background(), "5548991234567", "hello", nil)
	if !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Fatalf("expected ErrProviderUnreachable, got %v", err)
	}
}

func TestClient_Send_UndeliverableNumberIsRejected(t *testing.T) {
	client := newTestClient("http://unused.invalid")

	outcome, err := client.Send(context.Background(), "123", "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success || outcome.ErrorCode != "invalid_number" {
		t.Fatalf("expected invalid_number rejection, got %+v", outcome)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSMSGatewaySendsPayloadAndHeaders(t *testing.T) {
	var gotAuth, gotKey string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewSMSGateway(srv.URL, "secret-key", 0, nil)
	if g == nil {
		t.Fatalf("expected gateway")
	}

	err := g.Send(context.Background(), "+919800000001", "AASHAMDX", "Your booking is confirmed.", "b1:approved:sms")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotKey != "b1:approved:sms" {
		t.Fatalf("expected idempotency key header, got %q", gotKey)
	}
	if gotBody["to"] != "+919800000001" || gotBody["from"] != "AASHAMDX" {
		t.Fatalf("unexpected payload: %v", gotBody)
	}
}

func TestSMSGatewayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid sender id", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	g := NewSMSGateway(srv.URL, "secret-key", 0, nil)
	if err := g.Send(context.Background(), "+919800000001", "BAD", "hi", ""); err == nil {
		t.Fatalf("expected error for 4xx response")
	}
}

func TestNewSMSGatewayRequiresEndpointAndKey(t *testing.T) {
	if g := NewSMSGateway("", "key", 0, nil); g != nil {
		t.Fatalf("expected nil gateway without endpoint")
	}
	if g := NewSMSGateway("https://sms.example", "", 0, nil); g != nil {
		t.Fatalf("expected nil gateway without key")
	}
}

package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSponsorClientRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment-transaction" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req SponsorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Address != "0xsender" || req.Amount != "1500000" || req.PaymentSessionID != "s-1" {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(SponsoredEnvelope{Transaction: "dHhu", Authenticator: "YXV0aA=="})
	}))
	defer srv.Close()

	c, err := NewSponsorClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	envelope, err := c.SponsorPayment(context.Background(), "0xsender", PaymentIntent{
		MetadataAddress: "0xmeta",
		AmountBaseUnits: 1500000,
		SessionID:       "s-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if envelope.Transaction != "dHhu" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestSponsorClientRejectsEmptyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SponsoredEnvelope{})
	}))
	defer srv.Close()

	c, err := NewSponsorClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SponsorPayment(context.Background(), "0xsender", PaymentIntent{AmountBaseUnits: 1}); err == nil {
		t.Fatal("空 envelope 应返回错误")
	}
}

func TestSponsorClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"signing failed"}`))
	}))
	defer srv.Close()

	c, err := NewSponsorClient(srv.URL, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SponsorPayment(context.Background(), "0xsender", PaymentIntent{AmountBaseUnits: 1}); err == nil {
		t.Fatal("5xx 应返回错误")
	}
}

package webull

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "tradejournal/internal/errors"
)

func TestClient_Login_RequiresInit(t *testing.T) {
	client := NewClient("http://unused")
	err := client.Login(context.Background(), "user@example.com", "pw")
	if !errors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("Login() error = %v, want session state error", err)
	}
}

func TestClient_Login_Success(t *testing.T) {
	var gotDeviceID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDeviceID = r.Header.Get("did")
		w.Write([]byte(`{"accessToken": "tok-1", "uuid": "abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := client.Login(context.Background(), "user@example.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if gotDeviceID == "" {
		t.Error("login request missing device id header")
	}
}

func TestClient_Login_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.Init(context.Background())
	err := client.Login(context.Background(), "user@example.com", "bad")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want unauthorized", err)
	}
}

func TestClient_FetchTrades_RequiresLogin(t *testing.T) {
	client := NewClient("http://unused")
	client.Init(context.Background())
	_, err := client.FetchTrades(context.Background())
	if !errors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("FetchTrades() error = %v, want session state error", err)
	}
}

func TestClient_FetchTrades_SkipsUnfilled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/passport/login/v5/account" {
			w.Write([]byte(`{"accessToken": "tok-1"}`))
			return
		}
		w.Write([]byte(`{"items": [
			{"orderId": 1, "action": "BUY", "status": "Filled", "filledQuantity": "10",
			 "avgFilledPrice": "150.50", "fee": "0.35", "filledTime": "2025-03-01 14:30:00",
			 "secAccountId": 77, "ticker": {"symbol": "AAPL", "currencyCode": "USD"}},
			{"orderId": 2, "action": "SELL", "status": "Cancelled", "filledQuantity": "0",
			 "avgFilledPrice": "0", "filledTime": "2025-03-01 15:00:00",
			 "secAccountId": 77, "ticker": {"symbol": "AAPL", "currencyCode": "USD"}}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.Init(context.Background())
	if err := client.Login(context.Background(), "user@example.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	executions, err := client.FetchTrades(context.Background())
	if err != nil {
		t.Fatalf("FetchTrades() error = %v", err)
	}
	if len(executions) != 1 {
		t.Fatalf("len(executions) = %d, want 1", len(executions))
	}

	exec := executions[0]
	if exec.ExternalID != "1" || exec.Symbol != "AAPL" || exec.Side != "buy" {
		t.Errorf("execution = %+v, want order 1 AAPL buy", exec)
	}
	if exec.Quantity.String() != "10" || exec.Price.String() != "150.5" {
		t.Errorf("quantity/price = %s/%s, want 10/150.5", exec.Quantity, exec.Price)
	}
	if exec.Fees.String() != "0.35" {
		t.Errorf("fees = %s, want 0.35", exec.Fees)
	}
}

func TestClient_Logout_ClearsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/passport/login/v5/account" {
			w.Write([]byte(`{"accessToken": "tok-1"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.Init(context.Background())
	if err := client.Login(context.Background(), "user@example.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	_, err := client.FetchTrades(context.Background())
	if !errors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("FetchTrades() after logout error = %v, want session state error", err)
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	if hashPassword("pw") != hashPassword("pw") {
		t.Error("hashPassword should be deterministic")
	}
	if hashPassword("pw") == "pw" {
		t.Error("hashPassword should not return plaintext")
	}
}

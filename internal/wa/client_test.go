package wa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestSendClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		Token:         "test-token",
		PhoneNumberID: "12345",
		BaseURL:       srv.URL,
	})
}

func TestClient_SendText(t *testing.T) {
	t.Parallel()

	c := newTestSendClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/12345/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var p OutboundPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if p.To != "221700000001" || p.Text == nil || p.Text.Body != "bonjour" {
			t.Errorf("payload = %+v", p)
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.out1"}]}`))
	})

	if err := c.Send(context.Background(), NewText("221700000001", "bonjour")); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestClient_SendRejectedByAPI(t *testing.T) {
	t.Parallel()

	c := newTestSendClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":131026}}`))
	})

	err := c.Send(context.Background(), NewText("bad", "x"))
	if !errors.Is(err, ErrSendRejected) {
		t.Fatalf("error = %v, want ErrSendRejected", err)
	}
}

func TestClient_SendRespectsContext(t *testing.T) {
	t.Parallel()

	c := newTestSendClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Send(ctx, NewText("221700000001", "x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

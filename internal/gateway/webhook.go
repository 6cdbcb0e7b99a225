package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

// maxWebhookBody caps the accepted payload size.
const maxWebhookBody = 1 << 20 // 1 MiB

// Router constructs the chi mux with all routes wired.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth())
	r.Get("/webhook", g.handleVerify())
	r.Post("/webhook", g.handleWebhook())

	if g.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// handleVerify answers the channel's subscription handshake: echo
// hub.challenge when the verify token matches.
func (g *Gateway) handleVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		if mode != "subscribe" || g.config.VerifyToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(g.config.VerifyToken)) != 1 {
			g.logger.Warn("webhook verification rejected", "mode", mode)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		_, _ = w.Write([]byte(challenge))
	}
}

// handleWebhook validates and acknowledges a delivery, then hands its
// events to the engine. The 200 goes out regardless of processing
// outcome so the channel does not retry turns that merely failed
// downstream.
func (g *Gateway) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			g.reject(w, "failed to read body", http.StatusBadRequest)
			return
		}

		if g.config.AppSecret != "" {
			sig := r.Header.Get("X-Hub-Signature-256")
			if !validateHMAC(body, sig, g.config.AppSecret) {
				g.reject(w, "invalid signature", http.StatusUnauthorized)
				return
			}
		}

		// A malformed payload is acknowledged and dropped: a 4xx would
		// only make the channel redeliver the same broken body.
		events, err := wa.ParseWebhook(body)
		if err != nil {
			if g.metrics != nil {
				g.metrics.WebhooksRejected.Inc()
			}
			g.logger.Warn("malformed webhook payload dropped", "error", err)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}

		if g.metrics != nil {
			g.metrics.WebhooksReceived.Inc()
		}

		for _, ev := range events {
			if err := g.engine.Submit(ev); err != nil {
				g.logger.Warn("event not enqueued", "error", err, "customer_id", ev.CustomerID)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func (g *Gateway) reject(w http.ResponseWriter, msg string, code int) {
	if g.metrics != nil {
		g.metrics.WebhooksRejected.Inc()
	}
	g.logger.Warn("webhook rejected", "reason", msg)
	http.Error(w, msg, code)
}

// validateHMAC checks an HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

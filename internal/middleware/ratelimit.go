package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// maxKeyBody bounds how much of a webhook body is read to find its sender.
const maxKeyBody = 1 << 20

// RateLimit creates per-operator rate limiting middleware for the admin API.
// Unauthenticated requests are keyed by client IP.
func RateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if id := GetOperatorID(r.Context()); id != "" {
				return "operator:" + id, nil
			}
			ip, err := httprate.KeyByRealIP(r)
			return "ip:" + ip, err
		}),
		httprate.WithLimitHandler(limitHandler(windowLength)),
	)
}

// WebhookRateLimit throttles inbound webhook events per sender. Events whose
// sender cannot be read fall back to the client IP.
func WebhookRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if from := webhookSender(r); from != "" {
				return "sender:" + from, nil
			}
			ip, err := httprate.KeyByRealIP(r)
			return "ip:" + ip, err
		}),
		httprate.WithLimitHandler(limitHandler(windowLength)),
	)
}

func limitHandler(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", retryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + retryAfter + `}`))
	}
}

// webhookSender peeks at the first message's sender and restores the body.
func webhookSender(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var event struct {
		Entry []struct {
			Changes []struct {
				Value struct {
					Messages []struct {
						From string `json:"from"`
					} `json:"messages"`
				} `json:"value"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if json.Unmarshal(body, &event) != nil {
		return ""
	}
	for _, e := range event.Entry {
		for _, c := range e.Changes {
			for _, m := range c.Value.Messages {
				if m.From != "" {
					return m.From
				}
			}
		}
	}
	return ""
}

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	// IdempotencyHeader carries the client-chosen key.
	IdempotencyHeader = "Idempotency-Key"

	idempotencyLock   = time.Minute
	idempotencyRetain = 24 * time.Hour
)

// IdempotencyStore is the key/value slot behind the middleware.
// redis.IdempotencyStore satisfies it.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// NewIdempotencyHandler replays the stored response for a repeated
// Idempotency-Key on POST, PUT and PATCH requests. Keys are scoped to the
// authenticated user. A request whose twin is still running gets 409.
// Server errors free the key so the client can retry; when the store itself
// fails the request is served without idempotency.
func NewIdempotencyHandler(store IdempotencyStore, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get(IdempotencyHeader)
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := header
			if sess, ok := SessionFrom(ctx); ok {
				key = sess.UserID.String() + ":" + header
			}

			acquired, err := store.Reserve(ctx, key, idempotencyLock)
			if err != nil {
				log.WarnContext(ctx, "idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				replay(w, r, store, key, log)
				return
			}

			var body bytes.Buffer
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)

			next.ServeHTTP(ww, r)

			// The request context may be cancelled once the response is out.
			bg := context.WithoutCancel(ctx)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Release(bg, key); err != nil {
					log.WarnContext(ctx, "idempotency release failed", "error", err)
				}
				return
			}
			data, _ := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
			})
			if err := store.Save(bg, key, data, idempotencyRetain); err != nil {
				log.WarnContext(ctx, "idempotency save failed", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store IdempotencyStore, key string, log *slog.Logger) {
	data, err := store.Load(r.Context(), key)
	if err != nil {
		log.WarnContext(r.Context(), "idempotency lookup failed", "error", err)
	}
	if data == nil {
		writeError(w, http.StatusConflict, "a request with this Idempotency-Key is already in progress")
		return
	}

	var resp storedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		writeError(w, http.StatusConflict, "a request with this Idempotency-Key is already in progress")
		return
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

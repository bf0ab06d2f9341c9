package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"opacity-verifier/internal/types"
	"opacity-verifier/internal/verify"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Verifier runs one verification attempt.
type Verifier interface {
	Verify(ctx context.Context, tweetID string) verify.Result
}

// Membership answers whether an author has been verified before.
type Membership interface {
	Contains(identity string) bool
}

// VerifyHandler serves the verification endpoints.
type VerifyHandler struct {
	Secret   string
	Verifier Verifier
	Ledger   Membership
	// Concurrency bounds parallel attempts per webhook batch.
	Concurrency int
	Log         *zap.Logger
}

type mentionResult struct {
	TweetID string        `json:"tweet_id"`
	Result  verify.Result `json:"result"`
}

func (h VerifyHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h VerifyHandler) authorized(r *http.Request) bool {
	return h.Secret == "" || r.Header.Get("X-Webhook-Secret") == h.Secret
}

// Mentions verifies every mentioned tweet in a webhook batch and returns a summary.
func (h VerifyHandler) Mentions(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Accept either a single payload object or an array of payloads
	var payload types.MentionsPayload
	var payloads []types.MentionsPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		if err2 := json.Unmarshal(body, &payload); err2 != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		payloads = []types.MentionsPayload{payload}
	}

	// Flatten mentions, dropping repeats of the same tweet
	ids := make([]string, 0)
	seen := make(map[string]bool)
	received := 0
	for _, p := range payloads {
		received += len(p.Mentions)
		for _, m := range p.Mentions {
			if m.TweetID == "" || seen[m.TweetID] {
				continue
			}
			seen[m.TweetID] = true
			ids = append(ids, m.TweetID)
		}
	}

	results := make([]mentionResult, len(ids))
	g, ctx := errgroup.WithContext(r.Context())
	if h.Concurrency > 0 {
		g.SetLimit(h.Concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = mentionResult{TweetID: id, Result: h.Verifier.Verify(ctx, id)}
			return nil
		})
	}
	_ = g.Wait()

	h.logger().Info("mentions processed", zap.Int("received", received), zap.Int("processed", len(ids)))

	summary := struct {
		Received  int             `json:"received"`
		Processed int             `json:"processed"`
		Results   []mentionResult `json:"results"`
	}{
		Received:  received,
		Processed: len(ids),
		Results:   results,
	}
	writeJSON(w, http.StatusAccepted, summary)
}

// VerifyTweet runs one attempt for the tweet in the URL.
func (h VerifyHandler) VerifyTweet(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	res := h.Verifier.Verify(r.Context(), chi.URLParam(r, "tweetID"))
	status := http.StatusOK
	if res.Status == verify.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// Verified reports whether an author is in the ledger.
func (h VerifyHandler) Verified(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "authorID")
	writeJSON(w, http.StatusOK, map[string]any{
		"author_id": author,
		"verified":  h.Ledger.Contains(author),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

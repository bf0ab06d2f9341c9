package opacity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProver(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/logs/abc123", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"signature":"s","data":{"model":"llama"}}`))
	})
	mux.HandleFunc("/api/logs/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("prover down"))
	})
	mux.HandleFunc("/api/logs/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	mux.HandleFunc("/api/verify", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Proof json.RawMessage `json:"proof"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var p struct {
			Signature string `json:"signature"`
		}
		_ = json.Unmarshal(in.Proof, &p)
		if p.Signature == "explode" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": p.Signature == "s"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchProof(t *testing.T) {
	c := NewClient(newProver(t).URL + "/")
	ctx := context.Background()

	blob, err := c.FetchProof(ctx, "abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"signature":"s","data":{"model":"llama"}}`, string(blob))

	_, err = c.FetchProof(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchProof(ctx, "broken")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "prover down")

	_, err = c.FetchProof(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestVerify(t *testing.T) {
	c := NewClient(newProver(t).URL)
	ctx := context.Background()

	ok, err := c.Verify(ctx, json.RawMessage(`{"signature":"s"}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(ctx, json.RawMessage(`{"signature":"forged"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Verify(ctx, json.RawMessage(`{"signature":"explode"}`))
	assert.ErrorIs(t, err, ErrUpstream)
}

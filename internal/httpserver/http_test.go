package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"opacity-verifier/internal/handlers"

	"github.com/stretchr/testify/assert"
)

type members map[string]bool

func (m members) Contains(id string) bool { return m[id] }

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(NewRouter(handlers.VerifyHandler{Secret: "s", Ledger: members{"a": true}}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if assert.NoError(t, err) {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err = http.Get(srv.URL + "/verified/a")
	if assert.NoError(t, err) {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err = http.Post(srv.URL+"/mentions", "application/json", nil)
	if assert.NoError(t, err) {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	assert.Equal(t, ":8080", NewServer("8080", handlers.VerifyHandler{}).Addr)
}

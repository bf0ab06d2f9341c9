package opacity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrNotFound is returned when the prover has no proof for a token.
	ErrNotFound = errors.New("opacity: proof not found")
	// ErrUpstream is returned for any other non-success prover response.
	ErrUpstream = errors.New("opacity: upstream error")
)

// maxProofBytes bounds the proof blob read from the prover.
const maxProofBytes = 4 << 20

// Client fetches and verifies inference proofs against an Opacity prover.
type Client struct {
	proverURL string
	http      *retryablehttp.Client
}

// NewClient returns a Client for proverURL. Requests are attempted once.
func NewClient(proverURL string) *Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{proverURL: strings.TrimRight(proverURL, "/"), http: client}
}

// FetchProof returns the raw proof blob stored under token.
func (c *Client) FetchProof(ctx context.Context, token string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/logs/%s", c.proverURL, url.PathEscape(token))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch proof %s: %w", token, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch proof %s: %w", token, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProofBytes))
	if err != nil {
		return nil, fmt.Errorf("read proof %s: %w", token, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fetch proof %s: invalid json: %w", token, ErrUpstream)
	}
	return json.RawMessage(body), nil
}

// Verify submits a proof blob to the prover and returns its verdict.
func (c *Client) Verify(ctx context.Context, blob json.RawMessage) (bool, error) {
	payload, err := json.Marshal(map[string]any{"proof": blob})
	if err != nil {
		return false, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.proverURL+"/api/verify", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify proof: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return false, fmt.Errorf("verify proof: %w", err)
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return out.Success, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

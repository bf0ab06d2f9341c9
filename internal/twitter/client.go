package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"opacity-verifier/internal/types"

	"github.com/dghubble/oauth1"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrNotFound is returned when the API reports no data for a tweet or user.
var ErrNotFound = errors.New("twitter: not found")

const tweetFields = "author_id,conversation_id,referenced_tweets"

// Credentials configure API access. Reads use the bearer token. Posting uses OAuth 1.0a
// user context when all four user keys are set, otherwise the bearer token.
type Credentials struct {
	BearerToken       string
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

func (c Credentials) userContext() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Client talks to the X API v2. Every request is attempted once.
type Client struct {
	baseURL    string
	bearer     string
	postBearer string // empty when posts are signed with OAuth 1.0a
	reader     *retryablehttp.Client
	writer     *retryablehttp.Client
}

// NewClient builds a Client for baseURL, e.g. https://api.twitter.com/2.
func NewClient(baseURL string, creds Credentials) *Client {
	c := &Client{
		baseURL:    baseURL,
		bearer:     creds.BearerToken,
		postBearer: creds.BearerToken,
		reader:     newHTTPClient(nil),
		writer:     newHTTPClient(nil),
	}
	if creds.userContext() {
		config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
		token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
		c.writer = newHTTPClient(config.Client(oauth1.NoContext, token))
		c.postBearer = ""
	}
	return c
}

func newHTTPClient(hc *http.Client) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if hc != nil {
		client.HTTPClient = hc
	}
	return client
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

// GetTweet fetches a tweet with its author and references.
func (c *Client) GetTweet(ctx context.Context, id string) (*types.Tweet, error) {
	var out struct {
		Data   *types.Tweet `json:"data"`
		Errors []apiError   `json:"errors"`
	}
	u := fmt.Sprintf("%s/tweets/%s?tweet.fields=%s", c.baseURL, url.PathEscape(id), tweetFields)
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("get tweet %s: %w", id, err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("get tweet %s: %w", id, ErrNotFound)
	}
	return out.Data, nil
}

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*types.User, error) {
	var out struct {
		Data   *types.User `json:"data"`
		Errors []apiError  `json:"errors"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(id)), &out); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
	}
	return out.Data, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.reader.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("twitter request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// ReplyIn contains minimal info to reply to a tweet.
type ReplyIn struct {
	InReplyTo string
	Text      string
}

// PostReply posts text as a reply under targetID and returns the new tweet id.
func (c *Client) PostReply(ctx context.Context, targetID, text string) (string, error) {
	return c.post(ctx, ReplyIn{InReplyTo: targetID, Text: text})
}

func (c *Client) post(ctx context.Context, in ReplyIn) (string, error) {
	url := fmt.Sprintf("%s/tweets", c.baseURL)
	body := map[string]any{
		"text": in.Text,
		"reply": map[string]any{
			"in_reply_to_tweet_id": in.InReplyTo,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	if c.postBearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.postBearer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.writer.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("twitter post failed: status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode post response: %w", err)
	}
	return out.Data.ID, nil
}

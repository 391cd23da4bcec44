// Package shortener calls a link-shortening API of the
// "?api=<key>&url=<long>&format=text" family.
package shortener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/gateway"
)

// maxBody bounds how much of the response is read.
const maxBody = 4 << 10

type Client struct {
	HTTP *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) Shorten(ctx context.Context, endpoint, apiKey, longURL string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("shortener endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api", apiKey)
	q.Set("url", longURL)
	q.Set("format", "text")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("shortener status %d", res.StatusCode)
	}
	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http://") && !strings.HasPrefix(short, "https://") {
		return "", fmt.Errorf("shortener returned non-url response")
	}
	return short, nil
}

var _ gateway.Shortener = (*Client)(nil)

package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/myrjola/whodunit/internal/errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client talks to the JSON API and keeps the session cookie between requests like a browser would.
type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a client with its own cookie jar, i.e., its own session.
func NewClient(url string) (*Client, error) {
	jar, err := newSessionJar()
	if err != nil {
		return nil, errors.Wrap(err, "create session jar")
	}
	return &Client{
		client: &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine for tests
		url:    url,
	}, nil
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		resp *http.Response
	)
	for {
		if resp, err = c.Do(ctx, http.MethodGet, urlPath, nil); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends body encoded as JSON unless it's nil. The caller closes the response body.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	var (
		err    error
		req    *http.Request
		resp   *http.Response
		reader io.Reader
	)
	if body != nil {
		var data []byte
		if data, err = json.Marshal(body); err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(data)
	}
	if req, err = http.NewRequestWithContext(ctx, method, c.url+urlPath, reader); err != nil {
		return nil, errors.Wrap(err, "create request", slog.String("path", urlPath))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("path", urlPath))
	}
	return resp, nil
}

// JSON sends the request, decodes the response body into dst and returns the status code. dst may be nil when only
// the status matters.
func (c *Client) JSON(ctx context.Context, method, urlPath string, body any, dst any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, errors.Wrap(err, "decode response body",
			slog.String("path", urlPath), slog.Int("status", resp.StatusCode))
	}
	return resp.StatusCode, nil
}

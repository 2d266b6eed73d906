// Package attachments talks to the attachment storage collaborator. The
// discussion engine never reads attachment bytes; it only releases refs when
// the comment holding them is deleted.
package attachments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client releases attachments over the storage service's HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates a client for the attachment service at baseURL.
func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     log,
	}
}

// Release frees the stored attachment. Called exactly once per ref, after
// the deleting transaction committed. Failures are logged and reported but
// must not roll back the deletion that triggered them.
func (c *Client) Release(ctx context.Context, ref string) error {
	u := c.BaseURL + "/v1/attachments/" + url.PathEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("attachment release failed", zap.String("ref", ref), zap.Error(err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// 404 means the ref is already gone; release is idempotent on the
	// storage side and that outcome is fine.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		err := fmt.Errorf("attachment service returned %d for %s", resp.StatusCode, ref)
		c.Logger.Warn("attachment release failed", zap.String("ref", ref), zap.Error(err))
		return err
	}
	return nil
}

// Noop discards release requests. Used when no attachment service is
// configured (development without uploads).
type Noop struct{}

func (Noop) Release(context.Context, string) error { return nil }

// ReleaserFunc adapts a function to the store's releaser contract; handy in
// tests that record released refs.
type ReleaserFunc func(ctx context.Context, ref string) error

func (f ReleaserFunc) Release(ctx context.Context, ref string) error { return f(ctx, ref) }

package fetcher

import (
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxBody caps how much of a document is downloaded when the server does not
// announce its size
const maxBody = 200 * 1024 * 1024

// Meta describes the document behind a note link
type Meta struct {
	Title       string
	SizeMB      float64
	ContentType string
}

// Client fetches link metadata
type Client struct {
	http *http.Client
}

// New creates a Client with the given request timeout
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Inspect retrieves rawURL and reports its size and, for HTML pages, its title
func (c *Client) Inspect(ctx context.Context, rawURL string) (*Meta, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "portfolio/1.0 (notes)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	meta := &Meta{}
	if ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		meta.ContentType = ct
	}

	var size int64
	if meta.ContentType == "text/html" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		meta.Title = extractTitle(string(body))
		size = int64(len(body))
	} else if resp.ContentLength >= 0 {
		size = resp.ContentLength
	} else {
		size, err = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	}
	if resp.ContentLength > size {
		size = resp.ContentLength
	}
	meta.SizeMB = toMB(size)

	return meta, nil
}

// toMB converts bytes to megabytes rounded to two decimals
func toMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

// extractTitle returns the text of the first <title> element
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(sb.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}

	return find(doc)
}

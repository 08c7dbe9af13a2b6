package dblp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// PageClient downloads DBLP author pages. It implements harvest.Fetcher:
// the work item target is the author page URL.
type PageClient struct {
	client *resty.Client
}

// NewPageClient builds a PageClient from cfg; Endpoint is ignored since
// each item carries its own URL.
func NewPageClient(cfg ClientConfig) *PageClient {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return &PageClient{client: client}
}

// Fetch downloads the page at item.Target.
func (c *PageClient) Fetch(ctx context.Context, item harvest.WorkItem) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(item.Target)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", item.Target, err)
	}
	if err := classifyStatus(resp.StatusCode(), item.Target); err != nil {
		return nil, err
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, &harvest.MalformedResponseError{Reason: "empty page body"}
	}
	return body, nil
}

// Normalize standardizes a university name: trimmed and lowercased.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SafeName mangles a university name into a filesystem-safe identifier,
// replacing every non-alphanumeric rune with an underscore.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range Normalize(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// AuthorFileName derives the HTML file name for an author page URL from its
// path, e.g. https://dblp.org/pid/12/345 -> pid_12_345.html.
func AuthorFileName(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = u.Path
	}
	name = strings.Trim(strings.ReplaceAll(name, "/", "_"), "_")
	if name == "" {
		name = "author"
	}
	return name + ".html"
}

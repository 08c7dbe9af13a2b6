package dblp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// DefaultEndpoint is the public DBLP SPARQL service.
const DefaultEndpoint = "https://sparql.dblp.org/sparql"

// ClientConfig holds the HTTP knobs shared by the DBLP clients.
type ClientConfig struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; Academic Research Bot; +https://example.org/bot)"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// QueryClient fetches faculty lists from the SPARQL endpoint. It implements
// harvest.Fetcher: the work item target is a normalized university name and
// the payload is the raw CSV the endpoint returns.
type QueryClient struct {
	client   *resty.Client
	endpoint string
}

// NewQueryClient builds a QueryClient from cfg.
func NewQueryClient(cfg ClientConfig) *QueryClient {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return &QueryClient{client: client, endpoint: cfg.Endpoint}
}

// Fetch runs the faculty query for item.Target and returns the CSV body.
func (c *QueryClient) Fetch(ctx context.Context, item harvest.WorkItem) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		SetHeader("Content-Type", "application/sparql-query").
		SetBody(FacultyQuery(item.Target)).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", item.Target, err)
	}
	if err := classifyStatus(resp.StatusCode(), c.endpoint); err != nil {
		return nil, err
	}
	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &harvest.MalformedResponseError{Reason: "empty query result"}
	}
	return body, nil
}

// FacultyQuery returns the SPARQL text selecting authors whose primary
// affiliation contains the lowercased university name.
func FacultyQuery(university string) string {
	return fmt.Sprintf(`
PREFIX dblp: <https://dblp.org/rdf/schema#>
PREFIX schema: <https://schema.org/>
SELECT ?author ?affiliation
WHERE {
    ?author dblp:primaryAffiliation ?affiliation .
    FILTER(CONTAINS(LCASE(?affiliation), %q))
}
`, Normalize(university))
}

func classifyStatus(status int, url string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &harvest.RateLimitedError{URL: url}
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		return nil
	default:
		return &harvest.HTTPStatusError{StatusCode: status, URL: url}
	}
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"hotfolder/internal/metadata"
	"hotfolder/internal/services"
)

const (
	userAgent    = "hotfolder/0.1.0"
	apiKeyHeader = "X-API-Key"

	// DefaultMaxResponseBytes caps a search response. Single records are a
	// few kilobytes.
	DefaultMaxResponseBytes = 8 << 20
)

// Query identifies the record to look up.
type Query struct {
	Identifier string
	Catalog    string
	Profile    string
	Field      string
}

type searchResponse struct {
	Records []record `json:"records"`
}

type record struct {
	Logical  *docStruct `json:"logical"`
	Physical *docStruct `json:"physical"`
}

type docStruct struct {
	Type     string  `json:"type"`
	Metadata []field `json:"metadata"`
}

type field struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Client queries the catalog search endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxResponse int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends key with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes.
func WithMaxResponseBytes(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxResponse = limit
		}
	}
}

// New creates a catalog client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxResponse: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Resolve fetches the first record matching q and converts it into a
// metadata document.
func (c *Client) Resolve(ctx context.Context, q Query) (*metadata.Document, error) {
	q.Identifier = strings.TrimSpace(q.Identifier)
	if q.Identifier == "" {
		return nil, lookupError("build query", "identifier must not be empty", services.ErrValidation)
	}
	if strings.TrimSpace(q.Catalog) == "" {
		return nil, lookupError("build query", "catalog name must not be empty", services.ErrConfiguration)
	}

	endpoint, err := url.Parse(c.baseURL + "/catalogues/" + url.PathEscape(q.Catalog) + "/search")
	if err != nil {
		return nil, lookupError("build query", "parse catalog url", fmt.Errorf("%w: %w", services.ErrConfiguration, err))
	}
	params := url.Values{}
	params.Set("query", q.Identifier)
	if q.Profile != "" {
		params.Set("profile", q.Profile)
	}
	if q.Field != "" {
		params.Set("field", q.Field)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, lookupError("build query", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, lookupError("search", fmt.Sprintf("request %s failed (latency=%v)", q.Identifier, latency), fmt.Errorf("%w: %w", marker, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, lookupError("search", fmt.Sprintf("no record for %s in %s", q.Identifier, q.Catalog), services.ErrNotFound)
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, lookupError("search", fmt.Sprintf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), services.ErrTransient)
	case resp.StatusCode != http.StatusOK:
		return nil, lookupError("search", fmt.Sprintf("catalog returned %d (latency=%v)", resp.StatusCode, latency), services.ErrExternalTool)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return nil, lookupError("search", "read catalog response", fmt.Errorf("%w: %w", services.ErrTransient, err))
	}
	if int64(len(body)) > c.maxResponse {
		return nil, lookupError("decode", fmt.Sprintf("catalog response exceeds %s", humanize.IBytes(uint64(c.maxResponse))), services.ErrValidation)
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, lookupError("decode", "decode catalog response", fmt.Errorf("%w: %w", services.ErrValidation, err))
	}
	if len(payload.Records) == 0 {
		return nil, lookupError("search", fmt.Sprintf("no record for %s in %s", q.Identifier, q.Catalog), services.ErrNotFound)
	}

	doc, err := payload.Records[0].document()
	if err != nil {
		return nil, lookupError("decode", "convert record", fmt.Errorf("%w: %w", services.ErrValidation, err))
	}
	return doc, nil
}

func (r record) document() (*metadata.Document, error) {
	if r.Logical == nil {
		return nil, errors.New("record has no logical docstruct")
	}
	doc := &metadata.Document{Logical: r.Logical.convert()}
	if r.Physical != nil {
		doc.Physical = r.Physical.convert()
	} else {
		doc.Physical = metadata.DocStruct{Type: "BoundBook"}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d docStruct) convert() metadata.DocStruct {
	out := metadata.DocStruct{Type: strings.TrimSpace(d.Type)}
	for _, f := range d.Metadata {
		out.AddMetadata(strings.TrimSpace(f.Type), f.Value)
	}
	return out
}

func lookupError(operation, message string, err error) error {
	return services.Wrap(services.ErrLookup, "resolve", operation, message, err)
}

package tryon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/visionfit/backend/pkg/logger"
)

// upstreamTimeout bounds a single provider attempt. There are no retries.
const upstreamTimeout = 30 * time.Second

// errorBodyLimit caps how much of an upstream error body is echoed into
// error messages.
const errorBodyLimit = 120

// HTTPProvider calls the external image-generation service.
type HTTPProvider struct {
	client     *http.Client
	endpoint   *url.URL
	credential string
	log        *logger.Logger
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider constructs a provider client for the given endpoint. The
// credential may be empty; Invoke then fails fast before any network I/O.
func NewHTTPProvider(client *http.Client, endpoint, credential string, log *logger.Logger) (*HTTPProvider, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("provider endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse provider endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: upstreamTimeout}
	}
	if log == nil {
		log = logger.NewDefault("tryon-provider")
	}
	return &HTTPProvider{
		client:     client,
		endpoint:   parsed,
		credential: strings.TrimSpace(credential),
		log:        log,
	}, nil
}

// Invoke performs a single synchronous attempt against the provider.
func (p *HTTPProvider) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	if p.credential == "" {
		return InvokeResult{}, fmt.Errorf("FAL_KEY not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("encode provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return InvokeResult{}, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Key "+p.credential)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a few spare bytes so truncate can land on a rune boundary.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit+utf8.UTFMax))
		return InvokeResult{}, fmt.Errorf("FAL error %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(snippet)), errorBodyLimit))
	}

	var result InvokeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return InvokeResult{}, fmt.Errorf("decode provider response: %w", err)
	}
	return result, nil
}

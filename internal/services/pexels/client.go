package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/services"
)

const (
	// DefaultBaseURL is the public video API root.
	DefaultBaseURL = "https://api.pexels.com/videos"

	defaultPerPage  = 15
	maxPerPage      = 80
	downloadRetries = 3
)

// qualityWidths maps the quality ladder onto the widths Pexels serves.
var qualityWidths = map[string]int{
	"sd":  640,
	"hd":  1280,
	"uhd": 1920,
}

// Video is one search result.
type Video struct {
	ID       int64       `json:"id"`
	Duration float64     `json:"duration"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	URL      string      `json:"url"`
	Files    []VideoFile `json:"video_files"`
}

// VideoFile is one downloadable rendition of a video.
type VideoFile struct {
	ID      int64  `json:"id"`
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Link    string `json:"link"`
}

type searchResponse struct {
	Videos       []Video `json:"videos"`
	TotalResults int     `json:"total_results"`
}

// Client defines the fetch behaviour stages depend on.
type Client interface {
	Search(ctx context.Context, query string, perPage int) ([]Video, error)
	Download(ctx context.Context, file VideoFile, destPath string) error
}

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLedger attaches a persistent request budget checked before each search.
func WithLedger(ledger *Ledger) Option {
	return func(c *HTTPClient) {
		c.ledger = ledger
	}
}

// WithRetryDelay overrides the base download backoff delay.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *HTTPClient) {
		c.retryDelay = delay
	}
}

// HTTPClient implements Client against the public API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	ledger     *Ledger
	retryDelay time.Duration
}

// NewHTTPClient constructs a client. The API key must be present; offline
// commands never build a client, so a missing key surfaces exactly where a
// network call was about to happen.
func NewHTTPClient(apiKey string, opts ...Option) (*HTTPClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "pexels",
			"api key is empty, set PEXELS_API_KEY or pexels.api_key", nil)
	}
	client := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries for landscape clips matching query.
func (c *HTTPClient) Search(ctx context.Context, query string, perPage int) ([]Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "pexels-search", "query is empty", nil)
	}
	if c.ledger != nil {
		if err := c.ledger.Reserve(); err != nil {
			return nil, err
		}
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", "landscape")
	endpoint := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "pexels-search", "building request", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetch", "pexels-search", query, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrTransient, "fetch", "pexels-search", "rate limit exceeded (429)", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "pexels-search",
			fmt.Sprintf("authorization rejected (%d), check the api key", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrTransient, "fetch", "pexels-search",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetch", "pexels-search", "decoding response", err)
	}
	return payload.Videos, nil
}

// Download streams a rendition to destPath, retrying transient failures with
// exponential backoff. The file appears atomically: data lands in a .part
// sibling first.
func (c *HTTPClient) Download(ctx context.Context, file VideoFile, destPath string) error {
	if file.Link == "" {
		return services.Wrap(services.ErrValidation, "fetch", "pexels-download", "file has no link", nil)
	}
	if strings.TrimSpace(destPath) == "" {
		return services.Wrap(services.ErrValidation, "fetch", "pexels-download", "destination path is empty", nil)
	}

	var lastErr error
	for attempt := 0; attempt < downloadRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.downloadOnce(ctx, file.Link, destPath); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return services.Wrap(services.ErrClipUnavailable, "fetch", "pexels-download",
		fmt.Sprintf("giving up after %d attempts", downloadRetries), lastErr)
}

func (c *HTTPClient) downloadOnce(ctx context.Context, link, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	part := destPath + ".part"
	f, err := os.Create(part)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(part)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(part)
		return closeErr
	}
	return os.Rename(part, destPath)
}

var _ Client = (*HTTPClient)(nil)

// BestMatch picks the file to download: the first video long enough for the
// needed duration carrying the requested quality, falling back to hd when
// the requested quality is absent everywhere.
func BestMatch(videos []Video, durationNeeded float64, quality string) (VideoFile, bool) {
	if file, ok := matchQuality(videos, durationNeeded, quality); ok {
		return file, true
	}
	if quality != "hd" {
		return matchQuality(videos, durationNeeded, "hd")
	}
	return VideoFile{}, false
}

func matchQuality(videos []Video, durationNeeded float64, quality string) (VideoFile, bool) {
	for _, video := range videos {
		if video.Duration < durationNeeded {
			continue
		}
		if file, ok := qualityFile(video.Files, quality); ok {
			return file, true
		}
	}
	return VideoFile{}, false
}

func qualityFile(files []VideoFile, quality string) (VideoFile, bool) {
	target, ok := qualityWidths[quality]
	if !ok {
		target = qualityWidths["hd"]
	}
	for _, f := range files {
		if f.Quality == quality && f.Width == target {
			return f, true
		}
	}
	for _, f := range files {
		if f.Quality == quality {
			return f, true
		}
	}
	return VideoFile{}, false
}

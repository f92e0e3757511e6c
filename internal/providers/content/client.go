package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/itsmrval/willitbemax/pkg/models"
)

const (
	roundsPath = "/content/v1/seasons/%d/rounds"

	// maxErrorBody bounds how much of a failed response is kept in a FetchError
	maxErrorBody = 512
)

// FetchError reports a transport failure or a non-2xx response.
// StatusCode is 0 when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("content API error: status=%d, url=%s", e.StatusCode, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not well-formed
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client handles content service requests
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a content service client for baseURL (scheme and host, no trailing path)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "willitbemax-race-weekend/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRounds fetches every round of a season.
// A body without result or rounds yields an empty slice.
func (c *Client) FetchRounds(ctx context.Context, year int) ([]models.Round, error) {
	url := c.baseURL + fmt.Sprintf(roundsPath, year)

	var body models.RoundsResponse
	if err := c.fetch(ctx, url, &body); err != nil {
		return nil, err
	}

	if body.Result == nil || len(body.Result.Rounds) == 0 {
		return []models.Round{}, nil
	}
	return body.Result.Rounds, nil
}

// fetch makes an HTTP GET request and decodes the JSON body into out
func (c *Client) fetch(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{URL: url, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	// The body must hold exactly one JSON value
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &DecodeError{URL: url, Err: errors.New("unexpected data after JSON body")}
	}

	return nil
}

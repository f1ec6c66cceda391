// Package remote is a client for the HTTP health data API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"burnpace/internal/analysis"
	"burnpace/internal/health"
)

// PerPage is the page size requested from the samples endpoint
const PerPage = 500

// APIError is a non-200 response the client has no sentinel for
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a health API client. It implements health.SampleReader.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client authenticating with tokenSource
func NewClient(baseURL string, tokenSource oauth2.TokenSource) *Client {
	return NewClientWithHTTP(baseURL, oauth2.NewClient(context.Background(), tokenSource), DefaultLimits)
}

// NewClientWithHTTP creates a client using an already authenticated http.Client
func NewClientWithHTTP(baseURL string, httpClient *http.Client, limits Limits) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(limits),
	}
}

// GetAuthorization returns the scopes granted to the token
func (c *Client) GetAuthorization(ctx context.Context) (*Authorization, error) {
	var auth Authorization
	if err := c.getJSON(ctx, "/v1/authorization", nil, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// GetSamples fetches one page of samples starting in [start, end)
func (c *Client) GetSamples(ctx context.Context, start, end time.Time, page, perPage int) (*SamplePage, error) {
	params := url.Values{}
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var p SamplePage
	if err := c.getJSON(ctx, "/v1/samples/active_energy", params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAllSamples fetches every page of samples in [start, end)
func (c *Client) GetAllSamples(ctx context.Context, start, end time.Time, onProgress func(fetched int)) ([]EnergySample, error) {
	var all []EnergySample
	for page := 1; ; page++ {
		p, err := c.GetSamples(ctx, start, end, page, PerPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		all = append(all, p.Samples...)

		if onProgress != nil {
			onProgress(len(all))
		}

		if !p.HasMore || len(p.Samples) == 0 {
			break
		}
	}
	return all, nil
}

// GetMoveGoal returns the user's daily move goal
func (c *Client) GetMoveGoal(ctx context.Context) (*MoveGoal, error) {
	var g MoveGoal
	if err := c.getJSON(ctx, "/v1/goals/move", nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ReadSamples implements health.SampleReader
func (c *Client) ReadSamples(ctx context.Context, from, to time.Time) ([]analysis.Sample, error) {
	remote, err := c.GetAllSamples(ctx, from, to, nil)
	if err != nil {
		return nil, err
	}
	out := make([]analysis.Sample, 0, len(remote))
	for _, s := range remote {
		out = append(out, s.toAnalysis())
	}
	return out, nil
}

// MoveGoal implements health.SampleReader
func (c *Client) MoveGoal(ctx context.Context) (float64, error) {
	g, err := c.GetMoveGoal(ctx)
	if err != nil {
		return 0, err
	}
	return g.Value, nil
}

// Authorized implements health.SampleReader
func (c *Client) Authorized(ctx context.Context) (bool, error) {
	auth, err := c.GetAuthorization(ctx)
	if errors.Is(err, health.ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return auth.CanRead(), nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", health.ErrUnauthorized, err)
		}
		return nil, err
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", health.ErrUnauthorized, path)
	case http.StatusNotFound, http.StatusNotImplemented:
		return nil, fmt.Errorf("%w: %s", health.ErrUnavailable, path)
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Package proxycurl provides a client for the Proxycurl profile
// enrichment API (company and person lookups).
package proxycurl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diligence-cli/internal/resilience"
)

const defaultBaseURL = "https://nubela.co/proxycurl"

// Client performs profile enrichment lookups.
type Client interface {
	EnrichCompany(ctx context.Context, profileURL string) (*CompanyProfile, error)
	EnrichPerson(ctx context.Context, profileURL string) (*PersonProfile, error)
}

// CompanyProfile is the structured company record.
type CompanyProfile struct {
	Name        string `json:"name"`
	Industry    string `json:"industry"`
	FoundedYear int    `json:"founded_year"`
	Description string `json:"description"`
}

// PersonProfile is the structured person record.
type PersonProfile struct {
	FullName string `json:"full_name"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxycurl: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus implements resilience.StatusError.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a Proxycurl API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) EnrichCompany(ctx context.Context, profileURL string) (*CompanyProfile, error) {
	var out CompanyProfile
	if err := c.get(ctx, "/api/linkedin/company", profileURL, &out); err != nil {
		return nil, eris.Wrap(err, "proxycurl: enrich company")
	}
	return &out, nil
}

func (c *httpClient) EnrichPerson(ctx context.Context, profileURL string) (*PersonProfile, error) {
	var out PersonProfile
	if err := c.get(ctx, "/api/v2/linkedin", profileURL, &out); err != nil {
		return nil, eris.Wrap(err, "proxycurl: enrich person")
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path, profileURL string, out any) error {
	reqURL := c.baseURL + path + "?url=" + url.QueryEscape(profileURL)

	_, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return struct{}{}, eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, eris.Wrap(err, "send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, eris.Wrap(err, "read response")
		}

		if resp.StatusCode != http.StatusOK {
			return struct{}{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return struct{}{}, eris.Wrap(err, "unmarshal response")
		}
		return struct{}{}, nil
	})
	return err
}

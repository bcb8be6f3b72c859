package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the admin API. The session cookie set by Login is kept in
// the client's cookie jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     logger.Logger
}

// APIError is a non-2xx response that does not map onto a domain error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func New(baseURL string) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: parsed,
		http:    &http.Client{Jar: jar, Timeout: defaultTimeout},
		log:     logger.New("client"),
	}, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (Principal, error) {
	var response struct {
		User Principal `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/admin/login", nil, LoginRequest{Username: username, Password: password}, &response)
	return response.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/admin/logout", nil, nil, nil)
}

func (c *Client) Check(ctx context.Context) (Principal, error) {
	var response struct {
		User Principal `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/check", nil, nil, &response)
	return response.User, err
}

// FetchSuggestions makes the client usable as a typeahead fetcher.
func (c *Client) FetchSuggestions(ctx context.Context, query string) ([]SearchCandidate, error) {
	var response struct {
		Suggestions []SearchCandidate `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/suggestions", url.Values{"q": {query}}, nil, &response)
	return response.Suggestions, err
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	var response struct {
		Results []SearchCandidate `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/search", url.Values{"q": {query}}, nil, &response)
	return response.Results, err
}

func (c *Client) Records(ctx context.Context) ([]SearchCandidate, error) {
	var response struct {
		Results []SearchCandidate `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/records", nil, nil, &response)
	return response.Results, err
}

func (c *Client) Record(ctx context.Context, id int) (*Waiver, error) {
	var response struct {
		Waiver *Waiver `json:"waiver"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/records/"+strconv.Itoa(id), nil, nil, &response)
	return response.Waiver, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dst any) error {
	log := c.log.Function("do")

	endpoint := c.baseURL.JoinPath(path)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return errorFor(resp)
	}

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		log.Debug("failed to decode response", "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// errorFor maps error responses back onto the domain errors the server
// derived them from.
func errorFor(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if body.Message == ErrInvalidCredentials.Error() {
			return ErrInvalidCredentials
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		if body.Message == ErrQueryTooShort.Error() {
			return ErrQueryTooShort
		}
	}

	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}

// Package api implements the typed HTTPS client for the matshelf catalog:
// authentication, asset listings, download URL resolution and the streaming
// file transfers driven by the download scheduler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/matshelf/matshelf/pkg/errors"
)

// UserAgent identifies the client to the API.
const UserAgent = "matshelf/1.0"

// TokenInvalidCallback is invoked once per token when the API reports the
// token as no longer valid, so the host can flip into the logged-out state.
type TokenInvalidCallback func(token string)

// Client talks to the catalog API. All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient has no overall timeout; large file bodies take longer
	// than any sane request deadline. Header and dial phases stay bounded.
	streamClient *http.Client

	mu             sync.Mutex
	token          string
	onTokenInvalid TokenInvalidCallback
	invalidated    map[string]bool
}

// NewClient creates a client for the given API base URL. The timeout applies
// per request, including the streamed file downloads' dial and header phases.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		streamClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
		invalidated: map[string]bool{},
	}
}

// SetToken installs the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// OnTokenInvalid registers the logout callback. It fires at most once per
// token value no matter how many in-flight requests hit the invalid-token
// response.
func (c *Client) OnTokenInvalid(cb TokenInvalidCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokenInvalid = cb
}

// reportTokenInvalid fires the callback once for the given token.
func (c *Client) reportTokenInvalid(token string) {
	c.mu.Lock()
	cb := c.onTokenInvalid
	fire := token != "" && !c.invalidated[token]
	if fire {
		c.invalidated[token] = true
	}
	c.mu.Unlock()
	if fire && cb != nil {
		cb(token)
	}
}

// apiError is the error envelope the API returns on failures.
type apiError struct {
	Message string `json:"message"`
}

// request performs one JSON API call. A nil payload sends no body. The
// response body is decoded into out when out is non-nil.
func (c *Client) request(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classifyResponseError(resp, token)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.ErrNotPopulated, err.Error())
	}
	return nil
}

// classifyTransportError maps transport failures onto the error taxonomy.
func classifyTransportError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Classify(err) == errors.KindUserCancelled:
		return errors.ErrUserCancelled
	case strings.Contains(msg, "proxy"):
		return errors.Wrap(errors.ErrProxy, err.Error())
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return errors.Wrap(errors.ErrTimeout, err.Error())
	default:
		return errors.Wrap(errors.ErrConnection, err.Error())
	}
}

// classifyResponseError maps non-2xx API responses onto the error taxonomy
// and triggers the token-invalidation callback on auth failures.
func (c *Client) classifyResponseError(resp *http.Response, token string) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope apiError
	_ = json.Unmarshal(data, &envelope)
	message := envelope.Message
	if message == "" {
		message = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if strings.Contains(strings.ToLower(message), "expired") {
			return errors.Wrap(errors.ErrURLExpired, message)
		}
		if strings.Contains(strings.ToLower(message), "password") ||
			strings.Contains(strings.ToLower(message), "credential") {
			return errors.ErrWrongCreds
		}
		c.reportTokenInvalid(token)
		return errors.Wrapf(errors.ErrNotAuthorized, "HTTP %d: %s", resp.StatusCode, message)
	case http.StatusNotFound:
		return errors.Wrapf(errors.ErrAssetNotFound, "HTTP 404: %s", message)
	case http.StatusProxyAuthRequired:
		return errors.Wrap(errors.ErrProxy, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.Wrap(errors.ErrTimeout, message)
	default:
		return errors.Wrapf(errors.ErrConnection, "HTTP %d: %s", resp.StatusCode, message)
	}
}

// ensureToken fails fast when an authenticated call is made logged out.
func (c *Client) ensureToken() error {
	if c.Token() == "" {
		return errors.ErrNoToken
	}
	return nil
}

func (c *Client) String() string {
	return fmt.Sprintf("api.Client(%s)", c.baseURL)
}

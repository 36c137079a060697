// Package crcon is the HTTP client for a CRCON (community RCON) server API.
//
// CRCON wraps every response in a {result, failed, error} envelope and
// authenticates with a session cookie obtained from api/login. The client
// holds the cookie in a jar, re-authenticates once on a 401, and rate-limits
// requests via a token bucket limiter.
package crcon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hlltools/server-status/internal/gamemap"
)

// Endpoint names understood by the CRCON API.
const (
	EndpointStatus      = "get_status"
	EndpointGameState   = "get_gamestate"
	EndpointSlots       = "get_slots"
	EndpointVIPSlotsNum = "get_vip_slots_num"
	EndpointVIPsCount   = "get_vips_count"
	EndpointMapRotation = "get_map_rotation"
)

// FetchError wraps a failed CRCON API call with its endpoint context.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("crcon %s returned %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("crcon %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client is a session-holding CRCON API client for a single server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a CRCON client with rate limiting. baseURL is the root
// of the CRCON web interface (e.g. "http://rcon.example.com:8010/").
func NewClient(baseURL, username, password string, requestsPerMinute int, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second, Jar: jar},
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		username:   username,
		password:   password,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}, nil
}

// BaseURL returns the server base URL the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// Login obtains a session cookie from api/login.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"api/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: "login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Endpoint: "login", Status: resp.StatusCode, Err: fmt.Errorf("login rejected")}
	}
	c.logger.Debug("crcon session established", "server", c.baseURL)
	return nil
}

// envelope is the standard CRCON response wrapper.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Failed bool            `json:"failed"`
	Error  *string         `json:"error"`
}

// get performs a rate-limited GET against an API endpoint and unwraps the
// response envelope. A 401 triggers one re-login and retry.
func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	raw, status, err := c.getOnce(ctx, endpoint)
	if status == http.StatusUnauthorized {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		raw, status, err = c.getOnce(ctx, endpoint)
	}
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &FetchError{Endpoint: endpoint, Status: status, Err: fmt.Errorf("%s", truncate(raw, 200))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.Failed {
		msg := "request failed"
		if env.Error != nil {
			msg = *env.Error
		}
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("%s", msg)}
	}
	return env.Result, nil
}

func (c *Client) getOnce(ctx context.Context, endpoint string) (body []byte, status int, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"api/"+endpoint, nil)
	if err != nil {
		return nil, 0, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("read response body: %w", err)}
	}
	return body, resp.StatusCode, nil
}

// --------------------------------------------------------------------------
// Typed endpoint calls
// --------------------------------------------------------------------------

// ServerName fetches and parses api/get_status.
func (c *Client) ServerName(ctx context.Context) (ServerName, error) {
	raw, err := c.get(ctx, EndpointStatus)
	if err != nil {
		return ServerName{}, err
	}
	return ParseServerName(raw)
}

// GameState fetches and parses api/get_gamestate.
func (c *Client) GameState(ctx context.Context) (GameState, error) {
	raw, err := c.get(ctx, EndpointGameState)
	if err != nil {
		return GameState{}, err
	}
	return ParseGameState(raw)
}

// Slots fetches and parses api/get_slots.
func (c *Client) Slots(ctx context.Context) (Slots, error) {
	raw, err := c.get(ctx, EndpointSlots)
	if err != nil {
		return Slots{}, err
	}
	return ParseSlots(raw)
}

// VIPSlots fetches the number of reserved VIP slots.
func (c *Client) VIPSlots(ctx context.Context) (int, error) {
	raw, err := c.get(ctx, EndpointVIPSlotsNum)
	if err != nil {
		return 0, err
	}
	return ParseCount(raw)
}

// VIPCount fetches the number of VIPs currently registered.
func (c *Client) VIPCount(ctx context.Context) (int, error) {
	raw, err := c.get(ctx, EndpointVIPsCount)
	if err != nil {
		return 0, err
	}
	return ParseCount(raw)
}

// MapRotation fetches and parses api/get_map_rotation.
func (c *Client) MapRotation(ctx context.Context) ([]gamemap.Map, error) {
	raw, err := c.get(ctx, EndpointMapRotation)
	if err != nil {
		return nil, err
	}
	return ParseMapRotation(raw)
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

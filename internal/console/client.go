package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// TokenHeader carries the refreshed session token on every successful
// authenticated response.
const TokenHeader = "X-Console-Token"

// API routes served by the console server.
const (
	RouteLogin       = "/console/login"
	RouteDataSources = "/console/dataSources"
	RouteExecuteSQL  = "/console/executeSql"
)

// ErrUnauthorized is returned when the server rejected the session token.
var ErrUnauthorized = errors.New("the login session has been disconnected")

// LoginRequest is the body of a login call.
type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Response is the envelope every console API call answers with.
type Response struct {
	Status  string          `json:"status"`
	Type    string          `json:"type,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	Expires *time.Time      `json:"expires,omitempty"`
	SQL     string          `json:"sql,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// ExecuteResponse is the decoded result of an executeSql call.
type ExecuteResponse struct {
	SQL     string          // text as executed, after server side preparation
	Results []*types.Result // one per statement
}

// Client talks to a console server.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses a client with a 60 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetToken replaces the session token, e.g. with one saved from an
// earlier run.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login authenticates and stores the session token.
func (c *Client) Login(ctx context.Context, user, password string) error {
	resp, err := c.post(ctx, RouteLogin, &LoginRequest{User: user, Password: password}, false)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login response carried no token")
	}
	c.SetToken(resp.Token)
	return nil
}

// DataSources lists the data sources the server can execute against.
func (c *Client) DataSources(ctx context.Context) ([]types.DataSourceInfo, error) {
	resp, err := c.post(ctx, RouteDataSources, struct{}{}, true)
	if err != nil {
		return nil, err
	}
	var list []types.DataSourceInfo
	if err := json.Unmarshal(resp.Value, &list); err != nil {
		return nil, fmt.Errorf("failed to decode data source list: %w", err)
	}
	return list, nil
}

// Execute prepares raw, sends it to dataSource and returns the result.
func (c *Client) Execute(ctx context.Context, dataSource, raw string) (*ExecuteResponse, error) {
	req, err := NewExecuteRequest(dataSource, raw)
	if err != nil {
		return nil, err
	}
	req.Format = FormatJSON

	resp, err := c.post(ctx, RouteExecuteSQL, req, true)
	if err != nil {
		return nil, err
	}

	sql, err := DecodeSQL(resp.SQL)
	if err != nil {
		return nil, err
	}
	var results []*types.Result
	if err := json.Unmarshal(resp.Value, &results); err != nil {
		return nil, fmt.Errorf("failed to decode execution result: %w", err)
	}
	return &ExecuteResponse{SQL: sql, Results: results}, nil
}

func (c *Client) post(ctx context.Context, route string, body any, authenticated bool) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		token := c.Token()
		if token == "" {
			return nil, ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", route, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized && authenticated {
		c.SetToken("")
		return nil, ErrUnauthorized
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unexpected response from %s (HTTP %d): %w", route, httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK || resp.Status != "success" {
		if resp.Message == "" {
			resp.Message = http.StatusText(httpResp.StatusCode)
		}
		return nil, fmt.Errorf("%s failed (HTTP %d): %s", route, httpResp.StatusCode, resp.Message)
	}

	if token := httpResp.Header.Get(TokenHeader); token != "" && authenticated {
		c.SetToken(token)
	}
	return &resp, nil
}

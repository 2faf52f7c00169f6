package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultRateLimit = 5.0

// ClientOpts configures a provider REST client.
type ClientOpts struct {
	Name         string
	BaseURL      string
	Delta        bool
	HTTPClient   *http.Client
	Logger       *log.Logger
	RateLimit    float64
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client implements [Service] over a REST API speaking the generic wire
// model. Provider constructors select the base URL, credentials, and delta
// capability.
//
// Every request passes through a shared rate limiter. A 401 triggers one
// token refresh and retry before the auth failure is surfaced.
type Client struct {
	name       string
	baseURL    string
	delta      bool
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu    sync.Mutex
	token *oauth2.Token
	oauth *oauth2.Config
}

// NewClient creates a REST client for one provider account.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: missing base URL", shared.ErrInvalidConfig)
	}
	if opts.AccessToken == "" && opts.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no access or refresh token", shared.ErrMissingCredentials)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	var conf *oauth2.Config
	if opts.RefreshToken != "" && opts.TokenURL != "" {
		conf = &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: opts.TokenURL},
		}
	}

	return &Client{
		name:       opts.Name,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		delta:      opts.Delta,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:     opts.Logger,
		token:      &oauth2.Token{AccessToken: opts.AccessToken, RefreshToken: opts.RefreshToken},
		oauth:      conf,
	}, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) SupportsDelta() bool { return c.delta }

// refresh exchanges the refresh token for a fresh access token.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.oauth == nil || c.token.RefreshToken == "" {
		return shared.ErrRefreshFailed
	}

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = c.token.RefreshToken
	}
	c.token = token
	return nil
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.AccessToken
}

// doRequest performs an authenticated HTTP request against the provider.
//
// endpoint may be a path relative to the base URL or an absolute URL (page
// tokens arrive as full URLs from some providers).
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	return c.do(ctx, method, endpoint, body, result, false)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, result any, retried bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = c.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		if refreshErr := c.refresh(ctx); refreshErr == nil {
			c.logger.Debug("token refreshed after 401", "service", c.name)
			return c.do(ctx, method, endpoint, body, result, true)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// decodeError turns a non-success response into an *HTTPError, attaching
// the provider error code when an envelope was present.
func decodeError(resp *http.Response) error {
	httpErr := &HTTPError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		var envelope ErrorEnvelope
		if jsonErr := json.Unmarshal(data, &envelope); jsonErr == nil {
			httpErr.Code = envelope.Error.Code
			httpErr.Message = envelope.Error.Message
		}
	}

	return httpErr
}

// Service implementation

func (c *Client) GetLists(ctx context.Context) (*TaskListPage, error) {
	var page TaskListPage
	if err := c.doRequest(ctx, http.MethodGet, "/lists", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) PaginateLists(ctx context.Context, pageToken string) (*TaskListPage, error) {
	var page TaskListPage
	if err := c.doRequest(ctx, http.MethodGet, pageToken, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetTasks(ctx context.Context, listID string) (*TaskPage, error) {
	var page TaskPage
	endpoint := fmt.Sprintf("/lists/%s/tasks", url.PathEscape(listID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) DeltaTasks(ctx context.Context, listID, cursor string) (*TaskPage, error) {
	var page TaskPage
	endpoint := fmt.Sprintf("/lists/%s/tasks?delta=%s", url.PathEscape(listID), url.QueryEscape(cursor))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) PaginateTasks(ctx context.Context, pageToken string) (*TaskPage, error) {
	var page TaskPage
	if err := c.doRequest(ctx, http.MethodGet, pageToken, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateTask(ctx context.Context, listID string, task *RemoteTask) (*RemoteTask, error) {
	var created RemoteTask
	endpoint := fmt.Sprintf("/lists/%s/tasks", url.PathEscape(listID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, task, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateTask(ctx context.Context, listID, taskID string, task *RemoteTask) (*RemoteTask, error) {
	var updated RemoteTask
	endpoint := fmt.Sprintf("/lists/%s/tasks/%s", url.PathEscape(listID), url.PathEscape(taskID))
	if err := c.doRequest(ctx, http.MethodPatch, endpoint, task, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	endpoint := fmt.Sprintf("/lists/%s/tasks/%s", url.PathEscape(listID), url.PathEscape(taskID))
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) CreateChecklistItem(ctx context.Context, listID, parentID string, item *ChecklistItem) (*ChecklistItem, error) {
	var created ChecklistItem
	endpoint := fmt.Sprintf("/lists/%s/tasks/%s/checklistItems", url.PathEscape(listID), url.PathEscape(parentID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateChecklistItem(ctx context.Context, listID, parentID string, item *ChecklistItem) (*ChecklistItem, error) {
	var updated ChecklistItem
	endpoint := fmt.Sprintf("/lists/%s/tasks/%s/checklistItems/%s",
		url.PathEscape(listID), url.PathEscape(parentID), url.PathEscape(item.ID))
	if err := c.doRequest(ctx, http.MethodPatch, endpoint, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteChecklistItem(ctx context.Context, listID, parentID, itemID string) error {
	endpoint := fmt.Sprintf("/lists/%s/tasks/%s/checklistItems/%s",
		url.PathEscape(listID), url.PathEscape(parentID), url.PathEscape(itemID))
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

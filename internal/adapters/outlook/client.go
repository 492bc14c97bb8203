package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultGraphURL is the Microsoft Graph v1.0 root
	DefaultGraphURL = "https://graph.microsoft.com/v1.0"

	tokenURLTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope       = "https://graph.microsoft.com/.default"
	maxErrorBody     = 1024
)

// APIError is a non-success Graph response
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// ClientConfig holds the settings of a Graph client
type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	TenantID     string
	ClientID     string
	ClientSecret string
	User         string
	Timeout      time.Duration
}

// Client is a Microsoft Graph REST client using the client credentials grant
type Client struct {
	baseURL string
	user    string
	http    *http.Client
	creds   *clientcredentials.Config
	logger  *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewClient creates a Graph client for one mailbox user
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(tokenURLTemplate, cfg.TenantID)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    cfg.User,
		http:    &http.Client{Timeout: timeout},
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
		},
		logger: logger,
	}
}

// accessToken returns the cached token, fetching a new one when it is missing,
// expired or refresh is set
func (c *Client) accessToken(ctx context.Context, refresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if refresh || c.token == nil || !c.token.Valid() {
		tok, err := c.creds.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("could not obtain access token: %w", err)
		}
		c.token = tok
	}
	return c.token.AccessToken, nil
}

// userPath returns the path of a resource under the mailbox user
func (c *Client) userPath(format string, args ...interface{}) string {
	return "/users/" + url.PathEscape(c.user) + fmt.Sprintf(format, args...)
}

// encodeQuery encodes OData options with %20 for spaces
func encodeQuery(query url.Values) string {
	return strings.ReplaceAll(query.Encode(), "+", "%20")
}

// do sends a request and decodes the JSON response into out. A 401 triggers
// one token refresh and retry. path may be an absolute @odata.nextLink.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}
	if len(query) > 0 {
		target += "?" + encodeQuery(query)
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(ctx, attempt > 0)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("graph %s %s: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Info("Graph token rejected, refreshing", zap.String("path", path))
			continue
		}
		return c.decode(resp, method, path, out)
	}
	return errors.New("unreachable")
}

func (c *Client) decode(resp *http.Response, method, path string, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusAccepted {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode graph response: %w", err)
	}
	return nil
}

// folder resolves a well-known folder name such as inbox or drafts to its id
func (c *Client) folder(ctx context.Context, name string) (string, error) {
	var f mailFolder
	if err := c.do(ctx, http.MethodGet, c.userPath("/mailFolders/%s", name), nil, nil, &f); err != nil {
		return "", err
	}
	if f.ID == "" {
		return "", fmt.Errorf("graph returned no id for folder %s", name)
	}
	return f.ID, nil
}

// listMessages follows @odata.nextLink until limit messages are collected.
// limit <= 0 reads every page.
func (c *Client) listMessages(ctx context.Context, query url.Values, limit int) ([]message, error) {
	var (
		out  []message
		path = c.userPath("/messages")
	)
	for path != "" {
		var page messageList
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		path, query = page.NextLink, nil
	}
	return out, nil
}

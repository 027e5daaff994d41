package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

// HTTPClient talks JSON over HTTP to the reference case store server. A
// 401 response triggers one transparent token refresh and retry, so
// callers never see an expired access token.
type HTTPClient struct {
	baseURL string
	timeout time.Duration

	// no global client timeout: the change feed must stay open, so CRUD
	// bounds come from per-request contexts instead
	http *http.Client

	mu           sync.Mutex
	identity     string
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, nil, false)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var tokens tokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &tokens, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.identity = username
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

// refresh exchanges the refresh token for a new pair. Returns
// ErrUnauthorized when no refresh token is held or the server rejects it.
func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()

	if rt == "" {
		return ErrUnauthorized
	}

	var tokens tokenPair
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh",
		map[string]string{"refreshToken": rt}, &tokens, false)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnauthorized, err)
	}

	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

// doJSON performs one round trip, decoding a JSON response into out when
// out is non-nil. Authenticated requests retry exactly once after a
// transparent token refresh.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, body, err := c.roundTrip(ctx, method, path, in, authed)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if status == http.StatusUnauthorized && authed {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		status, body, err = c.roundTrip(ctx, method, path, in, authed)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
	}

	if err := mapStatus(status, body); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, in any, authed bool) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		c.mu.Lock()
		token := c.accessToken
		c.mu.Unlock()
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func mapStatus(status int, body []byte) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return common.ErrorNotFound
	case status == http.StatusConflict:
		return common.ErrorAlreadyExists
	default:
		return fmt.Errorf("remote store: status %d: %s", status, bytes.TrimSpace(body))
	}
}

func (c *HTTPClient) Create(ctx context.Context, in models.Case) (*models.Case, error) {
	var out models.Case
	if err := c.doJSON(ctx, http.MethodPost, "/api/cases", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Update(ctx context.Context, in models.Case) (*models.Case, error) {
	var out models.Case
	if err := c.doJSON(ctx, http.MethodPut, "/api/cases/"+in.ID, in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) List(ctx context.Context) ([]models.Case, error) {
	var out []models.Case
	if err := c.doJSON(ctx, http.MethodGet, "/api/cases", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/cases/"+id, nil, nil, true)
}

func (c *HTTPClient) CreateReport(ctx context.Context, in models.Report) (*models.Report, error) {
	var out models.Report
	if err := c.doJSON(ctx, http.MethodPost, "/api/cases/"+in.CaseID+"/reports", in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListReports(ctx context.Context, caseID string) ([]models.Report, error) {
	var out []models.Report
	if err := c.doJSON(ctx, http.MethodGet, "/api/cases/"+caseID+"/reports", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) PresignReportPDF(ctx context.Context) (string, string, error) {
	var out struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/reports/presign", nil, &out, true); err != nil {
		return "", "", err
	}
	return out.Key, out.URL, nil
}

// feedEvent is the payload of one change-feed push: the full current
// snapshot for the identity's scope.
type feedEvent struct {
	Cases []models.Case `json:"cases"`
}

// Subscribe opens the server-sent-events feed and decodes snapshot events
// until the stream ends or stop is called. The stream itself carries no
// timeout; it lives until explicitly torn down.
func (c *HTTPClient) Subscribe(ctx context.Context, onSnapshot func([]models.Case)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cases/feed", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, mapStatus(resp.StatusCode, nil)
	}

	go func() {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		var data bytes.Buffer
		for scanner.Scan() {
			line := scanner.Text()

			if after, ok := strings.CutPrefix(line, "data:"); ok {
				data.WriteString(strings.TrimPrefix(after, " "))
				continue
			}

			// blank line terminates one event
			if line == "" && data.Len() > 0 {
				var ev feedEvent
				if err := json.Unmarshal(data.Bytes(), &ev); err == nil {
					onSnapshot(ev.Cases)
				}
				data.Reset()
			}
		}
	}()

	return cancel, nil
}

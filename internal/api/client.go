package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeShirley/sentry-cli/internal/difutil"
	"github.com/JakeShirley/sentry-cli/internal/version"
	"github.com/JakeShirley/sentry-cli/pkg/clierror"
)

// maxErrorBody caps how much of an error response is echoed back to the user.
const maxErrorBody = 512

// Client provides HTTP access to the Sentry web API.
type Client struct {
	baseURL    string
	authToken  string
	headers    map[string]string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the Sentry server at baseURL.
func NewClient(baseURL, authToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authToken: authToken,
		headers:   make(map[string]string),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DebugInfoFile is a debug information file as stored by Sentry.
type DebugInfoFile struct {
	ID         string `json:"id" yaml:"id"`
	DebugID    string `json:"debugId" yaml:"debug_id"`
	UUID       string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	ObjectName string `json:"objectName" yaml:"object_name"`
	CPUName    string `json:"cpuName" yaml:"cpu_name"`
	SymbolType string `json:"symbolType" yaml:"symbol_type"`
	SHA1       string `json:"sha1" yaml:"sha1"`
	Size       int64  `json:"size" yaml:"size"`
}

func (c *Client) debugFilesURL(org, project string) string {
	return fmt.Sprintf("%s/api/0/projects/%s/%s/files/dsyms/", c.baseURL, url.PathEscape(org), url.PathEscape(project))
}

// ListDebugFiles returns the debug information files already uploaded to a project.
func (c *Client) ListDebugFiles(ctx context.Context, org, project string) ([]DebugInfoFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.debugFilesURL(org, project), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var files []DebugInfoFile
	if err := c.do(req, org, project, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// UploadDebugFile uploads one debug information file to a project and
// returns the files Sentry created from it.
func (c *Client) UploadDebugFile(ctx context.Context, org, project string, dif difutil.DebugFile) ([]DebugInfoFile, error) {
	f, err := os.Open(dif.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dif.Path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(dif.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dif.Path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.debugFilesURL(org, project), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created []DebugInfoFile
	if err := c.do(req, org, project, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// do sends req and decodes a JSON response into out. Non-2xx responses are
// mapped to *clierror.CLIError values.
func (c *Client) do(req *http.Request, org, project string, out any) error {
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", req.Method), zap.String("url", req.URL.String()), zap.Error(err))
		return clierror.ConnectionFailed(c.baseURL, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, strings.TrimSpace(string(body)), org, project)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(status int, body, org, project string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return clierror.NotAuthorized(apiDetail(body))
	case http.StatusNotFound:
		return clierror.ProjectNotFound(org, project)
	case http.StatusTooManyRequests:
		return clierror.RateLimited()
	default:
		return clierror.APIError(status, body)
	}
}

// apiDetail extracts the "detail" field of a Sentry error body, falling back
// to the raw body.
func apiDetail(body string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return body
}

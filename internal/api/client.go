package api

import (
	"bytes"
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

	"transcriber/internal/services"
)

// Client talks to a running daemon.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient targets the daemon listening on bind (host:port or a full URL).
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   strings.TrimSpace(token),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// StatusError is a non-2xx daemon response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps HTTP statuses onto the service error taxonomy.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusRequestEntityTooLarge:
		return services.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return services.ErrConfiguration
	default:
		return nil
	}
}

// IsUnavailable reports whether err means no daemon answered.
func IsUnavailable(err error) bool {
	var statusErr *StatusError
	return err != nil && !errors.As(err, &statusErr) && !errors.Is(err, context.Canceled)
}

// Status fetches daemon diagnostics.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var out DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// ListProjects returns projects, optionally filtered by status names.
func (c *Client) ListProjects(ctx context.Context, statuses ...string) ([]Project, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	var out ProjectListResponse
	if err := c.do(ctx, http.MethodGet, "/api/projects", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// GetProject returns a project with its segments.
func (c *Client) GetProject(ctx context.Context, id int64) (ProjectResponse, error) {
	var out ProjectResponse
	err := c.do(ctx, http.MethodGet, projectPath(id, ""), nil, nil, &out)
	return out, err
}

// CreateProject registers an assembled upload as a new project.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (Project, error) {
	var out ProjectResponse
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, req, &out)
	return out.Project, err
}

// Transcribe queues a segmented project for transcription.
func (c *Client) Transcribe(ctx context.Context, id int64) (Project, error) {
	var out ProjectResponse
	err := c.do(ctx, http.MethodPost, projectPath(id, "/transcribe"), nil, nil, &out)
	return out.Project, err
}

// Cancel stops a project.
func (c *Client) Cancel(ctx context.Context, id int64) (Project, error) {
	var out ProjectResponse
	err := c.do(ctx, http.MethodPost, projectPath(id, "/cancel"), nil, nil, &out)
	return out.Project, err
}

// RemoveProject deletes an idle project.
func (c *Client) RemoveProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, projectPath(id, ""), nil, nil, nil)
}

// RetrySegment re-transcribes one segment.
func (c *Client) RetrySegment(ctx context.Context, id int64, index int) (Segment, error) {
	var out SegmentResponse
	err := c.do(ctx, http.MethodPost, projectPath(id, "/segments/"+strconv.Itoa(index)+"/retry"), nil, nil, &out)
	return out.Segment, err
}

// Export renders a project in format and returns the document.
func (c *Client) Export(ctx context.Context, id int64, format string) ([]byte, error) {
	query := url.Values{}
	query.Set("format", format)
	var out []byte
	err := c.do(ctx, http.MethodGet, projectPath(id, "/export"), query, nil, &out)
	return out, err
}

func projectPath(id int64, suffix string) string {
	return "/api/projects/" + strconv.FormatInt(id, 10) + suffix
}

// do sends one request. A *[]byte out receives the raw body; any other
// non-nil out is decoded as JSON.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var apiErr ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s %s: read response: %w", method, path, err)
		}
		*dst = raw
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
		return nil
	}
}

package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPSender sends chunks to the daemon upload API.
type HTTPSender struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPSender targets the daemon at baseURL (for example http://127.0.0.1:7490).
func NewHTTPSender(baseURL, token string) *HTTPSender {
	return &HTTPSender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// BeginResponse is the body returned when a session opens.
type BeginResponse struct {
	SessionID string `json:"sessionId"`
}

// ChunkResponse is the body returned for each chunk.
type ChunkResponse struct {
	Done bool   `json:"done"`
	Path string `json:"path,omitempty"`
}

func (s *HTTPSender) Begin(ctx context.Context, filename string) (string, error) {
	body, _ := json.Marshal(map[string]string{"filename": filename})
	var resp BeginResponse
	if err := s.do(ctx, http.MethodPost, "/api/uploads", nil, "application/json", body, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("begin upload: empty session id")
	}
	return resp.SessionID, nil
}

func (s *HTTPSender) Send(ctx context.Context, sessionID string, index, total int, data []byte, filename string) (string, bool, error) {
	query := url.Values{}
	query.Set("total", strconv.Itoa(total))
	query.Set("filename", filename)
	path := fmt.Sprintf("/api/uploads/%s/chunks/%d", url.PathEscape(sessionID), index)
	var resp ChunkResponse
	if err := s.do(ctx, http.MethodPut, path, query, "application/octet-stream", data, &resp); err != nil {
		return "", false, err
	}
	return resp.Path, resp.Done, nil
}

func (s *HTTPSender) Abort(ctx context.Context, sessionID string) error {
	return s.do(ctx, http.MethodDelete, "/api/uploads/"+url.PathEscape(sessionID), nil, "", nil, nil)
}

func (s *HTTPSender) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	endpoint := s.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	client := s.Client
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
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

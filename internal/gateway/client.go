// Package gateway is the typed client for the remote message-store API.
// Wire payloads are snake_case; everything above this package sees
// camelCase, converted both ways through keycase. The gateway never
// retries: a failed call is reported to the caller exactly once.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ltavares/courier/internal/keycase"
	"go.uber.org/zap"
)

// Client issues requests against the message-store API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *zap.Logger
}

// New creates a gateway client for the given base URL. The token, when
// non-empty, is sent as a "Token" authorization header on every request.
func New(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ListInbox fetches one page of the inbox, optionally filtered by search.
func (c *Client) ListInbox(ctx context.Context, page int, search string) (*InboxPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if search != "" {
		q.Set("search", search)
	}
	var out InboxPage
	if err := c.do(ctx, http.MethodGet, "/inbox/", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConversation fetches one page of the conversation with the given
// peer, newest message first.
func (c *Client) ListConversation(ctx context.Context, page int, withUser string) (*MessagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("with_user", withUser)
	var out MessagePage
	if err := c.do(ctx, http.MethodGet, "/conversation/", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMessage sends a single message and returns the created Message.
func (c *Client) CreateMessage(ctx context.Context, receiver, body string) (*Message, error) {
	payload := map[string]any{"receiver": receiver, "message": body}
	var out Message
	if err := c.do(ctx, http.MethodPost, "/message/", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGroupMessages sends the same message to several receivers and
// returns the updated inbox entries, one per receiver.
func (c *Client) CreateGroupMessages(ctx context.Context, receivers []string, body string) ([]InboxEntry, error) {
	payload := map[string]any{"receivers": receivers, "message": body}
	var out []InboxEntry
	if err := c.do(ctx, http.MethodPost, "/bulk_message/", nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearUnread resets the unread counter of one inbox entry and returns the
// server-confirmed entry.
func (c *Client) ClearUnread(ctx context.Context, inboxID int64) (*InboxEntry, error) {
	payload := map[string]any{"unreadCount": 0}
	var out InboxEntry
	path := fmt.Sprintf("/inbox/%d/", inboxID)
	if err := c.do(ctx, http.MethodPatch, path, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers looks usernames up by fragment.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserHit, error) {
	q := url.Values{}
	q.Set("search", query)
	var out struct {
		Results []UserHit `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// FetchProfile reads the account profile of the given username.
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	var out Profile
	path := "/account/" + url.PathEscape(username) + "/"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Interests == nil {
		out.Interests = []string{}
	}
	return &out, nil
}

// do runs one request: body keys are converted to snake_case on the way
// out, response keys to camelCase on the way in. Failure statuses become
// *APIError carrying the converted error body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		wire, err := toWire(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(wire)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, ProcessedData: processBody(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	converted, err := fromWire(raw)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(converted, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toWire marshals v, lowers its keys to snake_case, and re-marshals.
func toWire(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(keycase.ToSnake(tree))
}

// fromWire raises the keys of a wire payload to camelCase. Keys that are
// already camelCase pass through, which is what makes the num_pages /
// numPages dual spelling tolerable on reads.
func fromWire(raw []byte) ([]byte, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(keycase.ToCamel(tree))
}

// processBody converts a structured error body to camelCase, or returns
// nil when the body is not JSON.
func processBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil
	}
	return keycase.ToCamel(tree)
}

package stalwart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoInbox is returned when an account has no mailbox with the inbox role.
var ErrNoInbox = errors.New("no inbox mailbox")

var mailCapabilities = []string{"urn:ietf:params:jmap:core", "urn:ietf:params:jmap:mail"}

// JMAPClient reads mailbox state over JMAP using the admin credential.
type JMAPClient struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// NewJMAPClient creates a new JMAPClient.
func NewJMAPClient(baseURL, adminToken string) *JMAPClient {
	return &JMAPClient{
		baseURL:    baseURL,
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type mailbox struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	UnreadEmails int    `json:"unreadEmails"`
}

// UnreadCount returns the number of unread emails in the account's inbox.
func (c *JMAPClient) UnreadCount(ctx context.Context, accountID string) (int, error) {
	request := map[string]any{
		"using": mailCapabilities,
		"methodCalls": []any{
			[]any{"Mailbox/get", map[string]any{
				"accountId":  accountID,
				"ids":        nil,
				"properties": []string{"role", "unreadEmails"},
			}, "0"},
		},
	}

	args, err := c.call(ctx, request, "Mailbox/get")
	if err != nil {
		return 0, fmt.Errorf("mailbox get for %s: %w", accountID, err)
	}

	var result struct {
		List []mailbox `json:"list"`
	}
	if err := json.Unmarshal(args, &result); err != nil {
		return 0, fmt.Errorf("decode mailbox list: %w", err)
	}

	for _, mb := range result.List {
		if mb.Role == "inbox" {
			return mb.UnreadEmails, nil
		}
	}
	return 0, fmt.Errorf("account %s: %w", accountID, ErrNoInbox)
}

// call sends a single-method JMAP request and returns the arguments of the
// matching method response. A JMAP "error" response is returned as an error.
func (c *JMAPClient) call(ctx context.Context, request any, method string) (json.RawMessage, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal jmap request: %w", err)
	}

	url := fmt.Sprintf("%s/jmap", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("jmap request: %w", err)
	}
	req.SetBasicAuth("admin", c.adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jmap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jmap request: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		MethodResponses [][]json.RawMessage `json:"methodResponses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode jmap response: %w", err)
	}

	for _, call := range result.MethodResponses {
		if len(call) < 2 {
			continue
		}
		var name string
		if err := json.Unmarshal(call[0], &name); err != nil {
			continue
		}
		switch name {
		case method:
			return call[1], nil
		case "error":
			var jmapErr struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			json.Unmarshal(call[1], &jmapErr)
			return nil, fmt.Errorf("jmap %s error: %s %s", method, jmapErr.Type, jmapErr.Description)
		}
	}
	return nil, fmt.Errorf("jmap response has no %s result", method)
}

package stalwart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Stalwart admin API to resolve mailbox principals.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

func NewClient(baseURL, adminToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetPrincipalID retrieves the numeric principal ID for a given account name
// from the Stalwart admin API.
func (c *Client) GetPrincipalID(ctx context.Context, accountName string) (uint32, error) {
	url := fmt.Sprintf("%s/api/principal/%s", c.baseURL, accountName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("get principal id request: %w", err)
	}
	req.SetBasicAuth("admin", c.adminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get principal id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("get principal id %s: status %d: %s", accountName, resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			ID uint32 `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode principal id: %w", err)
	}
	return result.Data.ID, nil
}

// ResolveJMAPAccountID returns the JMAP account ID for a mailbox address.
func (c *Client) ResolveJMAPAccountID(ctx context.Context, address string) (string, error) {
	id, err := c.GetPrincipalID(ctx, address)
	if err != nil {
		return "", err
	}
	return EncodePrincipalID(id), nil
}

// Stalwart encodes principal IDs with a base32 variant: a-z for 0-25,
// then 7,9,2,0,1,3 for 26-31.
const stalwartAlphabet = "abcdefghijklmnopqrstuvwxyz792013"

// EncodePrincipalID converts a numeric principal ID into a JMAP account ID.
func EncodePrincipalID(id uint32) string {
	if id == 0 {
		return "a"
	}

	var buf [7]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = stalwartAlphabet[id%32]
		id /= 32
	}
	return string(buf[i:])
}

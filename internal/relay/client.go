// Package relay implements the outbound signed client for the vendor API.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rylie-seo/vendor-relay/internal/guard"
)

// ErrVendorUnavailable covers transport-level failures: connection refused,
// DNS failure, timeout, caller cancellation mid-flight.
var ErrVendorUnavailable = errors.New("vendor API unavailable")

// VendorRejectedError carries a non-2xx vendor response. The relay never
// retries; callers own retry policy.
type VendorRejectedError struct {
	StatusCode int
	Body       string
}

func (e *VendorRejectedError) Error() string {
	return fmt.Sprintf("vendor API error: %d - %s", e.StatusCode, e.Body)
}

// Client signs and forwards platform-originated requests to the vendor.
// Outbound payloads never carry vendor identity, so no redaction is applied
// in this direction.
type Client struct {
	baseURL    string
	apiKey     string
	signer     *guard.Signer
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, apiKey string, signer *guard.Signer, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Forward serializes payload, builds a signed envelope over the exact bytes
// sent, and POSTs it to the vendor endpoint. Returns the decoded vendor
// response body on 2xx.
func (c *Client) Forward(ctx context.Context, endpoint string, payload interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vendor payload: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := c.signer.Sign(timestamp, body)

	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create vendor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVendorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &VendorRejectedError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// 2xx with an unparseable body still counts as accepted
		return map[string]interface{}{}, nil
	}

	return result, nil
}

package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "roomcast/internal/errors"
)

// Client talks to the messaging platform's Graph-style HTTP API: media
// metadata lookup, bounded binary download, and the outbound send segment.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	retryCount    int
	httpClient    *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		retryCount:    cfg.RetryCount,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// GetMediaInfo resolves a media id to its short-lived download URL.
// Classifies platform responses so the media pipeline can tell an expired
// reference from a credential problem from a transient outage.
func (c *Client) GetMediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeMediaTransient, "media metadata request failed")
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, "media metadata"); err != nil {
		return nil, err
	}

	var info MediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode media metadata: %w", err)
	}
	return &info, nil
}

// Download fetches media bytes from a short-lived URL, enforcing maxBytes.
// Returns the bytes and the declared content type.
func (c *Client) Download(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", apperrors.WrapRetryable(err, apperrors.ErrCodeMediaTransient, "media download failed")
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, "media download"); err != nil {
		return nil, "", err
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, "", apperrors.New(apperrors.ErrCodeMediaTooLarge,
			fmt.Sprintf("declared size %d exceeds limit %d", resp.ContentLength, maxBytes))
	}

	reader := resp.Body
	if maxBytes > 0 {
		// Read one byte past the limit to detect undeclared oversize bodies.
		reader = io.NopCloser(io.LimitReader(resp.Body, maxBytes+1))
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", apperrors.WrapRetryable(err, apperrors.ErrCodeMediaTransient, "media read failed")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", apperrors.New(apperrors.ErrCodeMediaTooLarge,
			fmt.Sprintf("media exceeds limit %d", maxBytes))
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// SendText sends an outbound text message. This is the segment the outbound
// REST surface shares with the ingestion core.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	var lastErr error
	attempts := c.retryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.postJSON(ctx, url, data)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !apperrors.IsRetryable(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte) (*SendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodePlatformAPI, "send request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		msg := fmt.Sprintf("send failed with status %d: %s", resp.StatusCode, apiErr.Error.Message)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, apperrors.WrapRetryable(fmt.Errorf("%s", msg), apperrors.ErrCodePlatformAPI, "platform send error")
		}
		return nil, apperrors.New(apperrors.ErrCodePlatformAPI, msg)
	}

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode send response: %w", err)
	}
	return &result, nil
}

func classifyStatus(resp *http.Response, op string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return apperrors.New(apperrors.ErrCodeMediaNotFound, op+": reference not found or expired")
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.ErrCodeMediaAccessDenied, op+": access denied")
	default:
		return apperrors.WrapRetryable(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			apperrors.ErrCodeMediaTransient, op+" failed")
	}
}

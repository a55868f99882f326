package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "roomcast/internal/errors"
)

// Errors the provider reports for tokens that will never work again.
// Targets failing with these are pruned from storage.
const (
	errNotRegistered       = "NotRegistered"
	errInvalidRegistration = "InvalidRegistration"
)

// Notification is the displayable payload of a push message.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// MulticastResult is the per-target breakdown of one multicast send.
// InvalidTokens lists targets the provider marked permanently dead.
type MulticastResult struct {
	Success       int
	Failure       int
	InvalidTokens []string
}

type multicastRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    notificationBody  `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type notificationBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"results"`
}

// Client sends multicast push notifications to a provider endpoint.
type Client struct {
	endpoint   string
	serverKey  string
	httpClient *http.Client
}

// ClientConfig configures the push client.
type ClientConfig struct {
	Endpoint  string
	ServerKey string
	Timeout   time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		serverKey:  cfg.ServerKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendMulticast delivers one notification to all tokens in a single request
// and reports the per-token outcome. A transport or provider-side failure is
// an error; individual token failures are not.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, n Notification) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return &MulticastResult{}, nil
	}

	payload, err := json.Marshal(multicastRequest{
		RegistrationIDs: tokens,
		Notification:    notificationBody{Title: n.Title, Body: n.Body},
		Data:            n.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal multicast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePushProvider, "multicast request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrCodePushProvider,
			fmt.Sprintf("multicast rejected with status %d", resp.StatusCode))
	}

	var body multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePushProvider, "failed to decode multicast response")
	}

	result := &MulticastResult{Success: body.Success, Failure: body.Failure}
	for i, r := range body.Results {
		if i >= len(tokens) {
			break
		}
		if r.Error == errNotRegistered || r.Error == errInvalidRegistration {
			result.InvalidTokens = append(result.InvalidTokens, tokens[i])
		}
	}
	return result, nil
}

// Package sms is the SMS leg of the pipeline: the daily recap going out and
// the veto replies coming back, both over the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Message is one SMS message as returned by the reply channel.
type Message struct {
	Body     string `json:"body"`
	From     string `json:"from"`
	To       string `json:"to"`
	DateSent string `json:"date_sent"`
}

// ReplyChannel lists recent inbound messages. Veto directive parsing lives
// with the approval state machine; this is transport only.
type ReplyChannel interface {
	FetchRecentMessages(ctx context.Context, to, from string, limit int) ([]Message, error)
}

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, from, to, body string) error
}

// TwilioClient implements ReplyChannel and Sender against the Twilio REST
// API.
type TwilioClient struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

var (
	_ ReplyChannel = (*TwilioClient)(nil)
	_ Sender       = (*TwilioClient)(nil)
)

// NewTwilioClient creates a client for the given account credentials.
func NewTwilioClient(accountSID, authToken string) (*TwilioClient, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials are not set")
	}
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// SetBaseURL points the client at a different API endpoint. Used in tests.
func (c *TwilioClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// FetchRecentMessages lists up to limit messages sent to `to` from `from`,
// most recent first.
func (c *TwilioClient) FetchRecentMessages(ctx context.Context, to, from string, limit int) ([]Message, error) {
	params := url.Values{}
	if to != "" {
		params.Set("To", to)
	}
	if from != "" {
		params.Set("From", from)
	}
	if limit > 0 {
		params.Set("PageSize", strconv.Itoa(limit))
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json?%s", c.baseURL, c.accountSID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("twilio error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var listing struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode message listing: %w", err)
	}

	log.Debug().Int("messages", len(listing.Messages)).Msg("Fetched recent messages")
	return listing.Messages, nil
}

// Send posts one outbound message.
func (c *TwilioClient) Send(ctx context.Context, from, to, body string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	log.Info().Str("to", to).Msg("SMS sent")
	return nil
}

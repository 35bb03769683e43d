// Package services provides external service integrations and technical concerns like transports and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/utils"
)

// TransportService hands a single message to the downstream SMS provider.
// Send returns a receipt when the provider gives a definitive answer
// (accepted or rejected) and an error only for transport-level failures
// (timeout, connection refused, malformed response). The gatekeeper never
// retries; retry policy belongs to the provider side.
type TransportService interface {
	Send(ctx context.Context, recipient, message string) (*SendReceipt, error)
}

// SendReceipt is the provider's answer for a single message
type SendReceipt struct {
	Accepted    bool   `json:"accepted"`
	ProviderRef string `json:"provider_ref"`
	Status      string `json:"status"`
}

// TransportServiceImpl implements TransportService over the provider's HTTP API
type TransportServiceImpl struct {
	config *config.TransportConfig
	client *http.Client
}

// transportRequest represents the request payload for the provider API
type transportRequest struct {
	SrcNum    string `json:"srcNum"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Type      int    `json:"type"` // Always 1
}

// transportResponse represents a single message result from the provider API
type transportResponse struct {
	MessageID  int64  `json:"messageId"`
	Recipient  string `json:"recipient"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewTransportService creates a new transport service instance
func NewTransportService(cfg *config.TransportConfig) TransportService {
	return &TransportServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one message to the provider and reports its answer
func (s *TransportServiceImpl) Send(ctx context.Context, recipient, message string) (*SendReceipt, error) {
	payload := []transportRequest{{
		SrcNum:    s.config.SourceNumber,
		Recipient: recipient,
		Body:      message,
		Type:      1,
	}}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transport request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v3.0.1/send", s.config.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send transport request: %w", err)
	}
	defer resp.Body.Close()

	var results []transportResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode transport response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("empty transport response for %s", recipient)
	}

	result := results[0]
	receipt := &SendReceipt{
		Accepted:    result.StatusCode == 200 && result.Status == "ACCEPTED",
		ProviderRef: fmt.Sprintf("%d", result.MessageID),
		Status:      result.Status,
	}
	return receipt, nil
}

// MockTransportService implements TransportService for testing
type MockTransportService struct {
	mu           sync.Mutex
	SentMessages []MockTransportMessage

	// RejectNext makes the next N sends come back rejected
	RejectNext int
	// FailNext makes the next N sends return a transport error
	FailNext int

	refCounter int64
}

// MockTransportMessage represents a message handed to the mock transport
type MockTransportMessage struct {
	Recipient string
	Message   string
	SentAt    time.Time
}

// NewMockTransportService creates a new mock transport service
func NewMockTransportService() *MockTransportService {
	return &MockTransportService{
		SentMessages: make([]MockTransportMessage, 0),
	}
}

// Send records the message and answers according to the scripted outcome
func (m *MockTransportService) Send(ctx context.Context, recipient, message string) (*SendReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext > 0 {
		m.FailNext--
		return nil, fmt.Errorf("mock transport failure for %s", recipient)
	}
	if m.RejectNext > 0 {
		m.RejectNext--
		return &SendReceipt{Accepted: false, Status: "REJECTED"}, nil
	}

	m.refCounter++
	m.SentMessages = append(m.SentMessages, MockTransportMessage{
		Recipient: recipient,
		Message:   message,
		SentAt:    utils.UTCNow(),
	})
	return &SendReceipt{
		Accepted:    true,
		ProviderRef: fmt.Sprintf("mock-%d", m.refCounter),
		Status:      "ACCEPTED",
	}, nil
}

// GetSentMessages returns all messages the mock accepted
func (m *MockTransportService) GetSentMessages() []MockTransportMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockTransportMessage, len(m.SentMessages))
	copy(out, m.SentMessages)
	return out
}

// ClearSentMessages clears the sent messages list
func (m *MockTransportService) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = make([]MockTransportMessage, 0)
}

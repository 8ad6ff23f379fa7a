package sms

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("sms provider not configured")

type SMSProvider interface {
	SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error)
	SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error)
}

type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
	Type    string `json:"type"` // transactional, promotional
}

type SMSResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NoopProvider is used when no SMS gateway is configured. Every send fails
// with ErrNotConfigured so callers can log the skipped delivery.
type NoopProvider struct{}

func (NoopProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	return &SMSResponse{Status: "skipped", Error: ErrNotConfigured.Error()}, ErrNotConfigured
}

func (n NoopProvider) SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error) {
	return sendEach(ctx, n, requests), nil
}

func sendEach(ctx context.Context, p SMSProvider, requests []*SMSRequest) []*SMSResponse {
	responses := make([]*SMSResponse, len(requests))

	for i, req := range requests {
		resp, err := p.SendSMS(ctx, req)
		if err != nil {
			resp = &SMSResponse{
				Status: "failed",
				Error:  err.Error(),
			}
		}
		responses[i] = resp
	}

	return responses
}

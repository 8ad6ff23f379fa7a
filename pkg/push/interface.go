package push

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("push provider not configured")

type PushProvider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
}

type NotificationRequest struct {
	Token       string            `json:"token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Sound       string            `json:"sound,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	TTL         int               `json:"ttl,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Router picks a provider by device platform. Platforms without a provider
// fail with ErrNotConfigured.
type Router struct {
	providers map[string]PushProvider
}

func NewRouter() *Router {
	return &Router{providers: make(map[string]PushProvider)}
}

func (r *Router) Register(platform string, p PushProvider) {
	r.providers[platform] = p
}

func (r *Router) Enabled() bool {
	return len(r.providers) > 0
}

func (r *Router) Send(ctx context.Context, platform string, request *NotificationRequest) (*NotificationResponse, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, ErrNotConfigured
	}
	return p.SendNotification(ctx, request)
}

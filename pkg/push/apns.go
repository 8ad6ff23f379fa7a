package push

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
)

type APNSProvider struct {
	client *apns2.Client
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	response, err := a.client.PushWithContext(ctx, buildAPNSNotification(a.topic, request))
	if err != nil {
		return &NotificationResponse{
			Success: false,
			Error:   err.Error(),
			Token:   request.Token,
		}, err
	}

	if response.Sent() {
		return &NotificationResponse{
			MessageID: response.ApnsID,
			Success:   true,
			Token:     request.Token,
		}, nil
	}

	return &NotificationResponse{
		Success: false,
		Error:   response.Reason,
		Token:   request.Token,
	}, fmt.Errorf("APNS error: %s", response.Reason)
}

func buildAPNSNotification(topic string, request *NotificationRequest) *apns2.Notification {
	aps := map[string]interface{}{
		"alert": map[string]interface{}{
			"title": request.Title,
			"body":  request.Body,
		},
	}
	if request.Sound != "" {
		aps["sound"] = request.Sound
	}

	payload := map[string]interface{}{"aps": aps}
	for key, value := range request.Data {
		payload[key] = value
	}

	notification := &apns2.Notification{
		DeviceToken: request.Token,
		Topic:       topic,
		Payload:     payload,
		Priority:    apns2.PriorityLow,
		CollapseID:  request.CollapseKey,
	}
	if request.Priority == "high" {
		notification.Priority = apns2.PriorityHigh
	}
	if request.TTL > 0 {
		notification.Expiration = time.Now().Add(time.Duration(request.TTL) * time.Second)
	}

	return notification
}

package services

import (
	"context"
	"fmt"
	"strconv"

	"aiswo-backend/internal/alerts"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// messagingClient is the part of *messaging.Client the service uses.
type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client messagingClient
	topic  string
	logger *zap.Logger
}

// NewFCMService creates an FCM service on an initialized Firebase app.
// Bin alerts are published to topic.
func NewFCMService(ctx context.Context, app *firebase.App, topic string, logger *zap.Logger) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, topic: topic, logger: logger}, nil
}

// Name implements alerts.Notifier.
func (s *FCMService) Name() string {
	return "fcm"
}

// Notify implements alerts.Notifier by pushing the alert to the topic.
func (s *FCMService) Notify(ctx context.Context, alert alerts.Alert) error {
	return s.SendBinAlertNotification(ctx, alert)
}

// SendBinAlertNotification sends a notification when a bin crosses the fill threshold
func (s *FCMService) SendBinAlertNotification(ctx context.Context, alert alerts.Alert) error {
	message := &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: "Bin needs emptying",
			Body:  alert.Message(),
		},
		Data: map[string]string{
			"type":         "bin_alert",
			"bin_id":       alert.BinID,
			"fill_percent": strconv.FormatFloat(alert.FillPercent, 'f', 1, 64),
			"operator_id":  alert.OperatorID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	s.logger.Info("✅ FCM notification sent successfully", zap.String("message_id", response), zap.String("bin", alert.BinID))
	return nil
}

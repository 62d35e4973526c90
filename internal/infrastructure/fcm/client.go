package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const channelID = "journal_alerts"

type Client struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewClient initializes Firebase Cloud Messaging. With no credentials the
// client is returned disabled rather than failing startup.
func NewClient(ctx context.Context, credPath, credJSON string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opt option.ClientOption
	switch {
	case credPath != "":
		opt = option.WithCredentialsFile(credPath)
	case credJSON != "":
		opt = option.WithCredentialsJSON([]byte(credJSON))
	default:
		logger.Warn("no Firebase credentials found, coach alerts disabled")
		return &Client{logger: logger}, nil
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	logger.Info("Firebase Cloud Messaging initialized")
	return &Client{client: client, logger: logger}, nil
}

// SendNotification sends a push notification to a specific device token
func (c *Client) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if c.client == nil {
		return fmt.Errorf("FCM client not initialized")
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: androidConfig(),
	}

	response, err := c.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	c.logger.Debug("sent message", zap.String("response", response))
	return nil
}

// SendMulticast sends notification to multiple tokens
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if c.client == nil {
		return fmt.Errorf("FCM client not initialized")
	}

	if len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: androidConfig(),
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast: %w", err)
	}

	c.logger.Info("sent multicast",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount))
	return nil
}

// IsEnabled returns true if FCM client is initialized
func (c *Client) IsEnabled() bool {
	return c != nil && c.client != nil
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			ChannelID: channelID,
			Priority:  messaging.PriorityHigh,
		},
	}
}

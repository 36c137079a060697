// Package discord posts rendered sections to a Discord channel through a
// webhook. Each section keeps one long-lived message that is edited in
// place on every refresh; the message ID comes from the message store, and
// a message deleted on the Discord side is transparently re-posted.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

var webhookURLPattern = regexp.MustCompile(`discord(?:app)?\.com/api/webhooks/(\d+)/([\w-]+)`)

// ParseWebhookURL extracts the webhook ID and token from a Discord webhook
// URL.
func ParseWebhookURL(url string) (id, token string, err error) {
	m := webhookURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", fmt.Errorf("not a Discord webhook URL: %q", url)
	}
	return m[1], m[2], nil
}

// MessageStore persists section message IDs across restarts.
type MessageStore interface {
	MessageID(ctx context.Context, server, section string) (string, bool, error)
	SetMessageID(ctx context.Context, server, section, messageID string) error
	DeleteMessageID(ctx context.Context, server, section string) error
}

// Publisher maintains the webhook messages for one server.
type Publisher struct {
	session      *discordgo.Session
	webhookID    string
	webhookToken string
	server       string
	store        MessageStore
	logger       *slog.Logger
}

// NewPublisher creates a Publisher for the given webhook URL. Webhook calls
// need no bot token, so the session is unauthenticated.
func NewPublisher(webhookURL, serverIdentifier string, store MessageStore, logger *slog.Logger) (*Publisher, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		session:      session,
		webhookID:    id,
		webhookToken: token,
		server:       serverIdentifier,
		store:        store,
		logger:       logger,
	}, nil
}

// Publish edits the section's existing message, or sends a new one and
// records its ID. Exactly one of content/embed is expected to be set.
func (p *Publisher) Publish(ctx context.Context, section, content string, embed *discordgo.MessageEmbed) error {
	var embeds []*discordgo.MessageEmbed
	if embed != nil {
		embeds = []*discordgo.MessageEmbed{embed}
	}

	messageID, ok, err := p.store.MessageID(ctx, p.server, section)
	if err != nil {
		return err
	}

	if ok {
		_, err = p.session.WebhookMessageEdit(p.webhookID, p.webhookToken, messageID,
			&discordgo.WebhookEdit{Content: &content, Embeds: &embeds},
			discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}
		if !isUnknownMessage(err) {
			return fmt.Errorf("edit %s message: %w", section, err)
		}
		// The message was deleted on the Discord side; post a fresh one.
		p.logger.Warn("stored message gone, re-posting",
			"server", p.server, "section", section, "message_id", messageID)
		if err := p.store.DeleteMessageID(ctx, p.server, section); err != nil {
			return err
		}
	}

	sent, err := p.session.WebhookExecute(p.webhookID, p.webhookToken, true,
		&discordgo.WebhookParams{Content: content, Embeds: embeds},
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send %s message: %w", section, err)
	}
	return p.store.SetMessageID(ctx, p.server, section, sent.ID)
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) &&
		restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeUnknownMessage
}

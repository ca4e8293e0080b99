// Package alert tells operators about conditions that need a human, such as an
// order nobody could be dispatched to.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type DiscordAlerter struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordAlerter(botToken, channelID string) (*DiscordAlerter, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &DiscordAlerter{session: session, channelID: channelID}, nil
}

func (a *DiscordAlerter) Alert(ctx context.Context, subject, message string) error {
	content := fmt.Sprintf("**%s**\n%s", subject, message)
	if _, err := a.session.ChannelMessageSend(a.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send Discord alert: %w", err)
	}
	return nil
}

type MailAlerter struct {
	client *mail.Client
	from   string
	to     string
}

func NewMailAlerter(host string, port int, username, password, to string) (*MailAlerter, error) {
	client, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username), mail.WithPassword(password))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &MailAlerter{client: client, from: username, to: to}, nil
}

func (a *MailAlerter) Alert(ctx context.Context, subject, message string) error {
	msg := mail.NewMsg()
	if err := msg.From(a.from); err != nil {
		return fmt.Errorf("failed to set From address: %w", err)
	}
	if err := msg.To(a.to); err != nil {
		return fmt.Errorf("failed to set To address: %w", err)
	}
	msg.Subject("[dispatch] " + subject)
	msg.SetBodyString(mail.TypeTextPlain, message)

	if err := a.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, subject, message string) error {
	log.Warn().Str("subject", subject).Msg(message)
	return nil
}

// Multi sends to every alerter and reports all failures together.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, subject, message string) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(ctx, subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

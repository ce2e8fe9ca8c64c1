package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// FulfillmentNotice tells one team that some of its orders can be picked up.
type FulfillmentNotice struct {
	TeamName   string
	Recipients []string
	Lines      []FulfilledLine
}

type FulfilledLine struct {
	ItemName string
	Quantity int64
}

// SMTPConfig is the outgoing mail server.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.FromEmail != ""
}

var fulfillmentTemplate = template.Must(template.New("fulfillment").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your hardware is ready</h2>
    </div>

    <div class="content">
        <p>Hello {{.TeamName}},</p>
        <p>The following items are ready for pickup at the hardware desk:</p>
        <ul>
        {{range .Lines}}<li>{{.Quantity}} x {{.ItemName}}</li>
        {{end}}</ul>
    </div>

    <div class="footer">
        <p>© {{.Year}} Hackathon Portal</p>
    </div>
</body>
</html>`))

// MessageSender delivers a composed message. *gomail.Dialer satisfies it.
type MessageSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// FulfillmentMailer sends pickup notices over SMTP.
type FulfillmentMailer struct {
	cfg    SMTPConfig
	sender MessageSender
}

func NewFulfillmentMailer(cfg SMTPConfig) *FulfillmentMailer {
	return &FulfillmentMailer{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewFulfillmentMailerWithSender is used by tests to capture messages.
func NewFulfillmentMailerWithSender(cfg SMTPConfig, sender MessageSender) *FulfillmentMailer {
	return &FulfillmentMailer{cfg: cfg, sender: sender}
}

func (m *FulfillmentMailer) OrdersFulfilled(ctx context.Context, notice FulfillmentNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(notice.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Hardware ready for %s", notice.TeamName)
	var body bytes.Buffer
	err := fulfillmentTemplate.Execute(&body, struct {
		FulfillmentNotice
		Subject string
		Year    int
	}{notice, subject, time.Now().Year()})
	if err != nil {
		return fmt.Errorf("error executing template: %v", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.FromEmail, m.cfg.FromName))
	msg.SetHeader("Bcc", notice.Recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	LogEvent("fulfillment_notice_sent", map[string]interface{}{
		"team":       notice.TeamName,
		"recipients": len(notice.Recipients),
	})
	return nil
}

package utils

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

var testSMTP = SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "hw@example.com", FromName: "Hardware Desk"}

func TestFulfillmentMailer_SendsNotice(t *testing.T) {
	sender := &captureSender{}
	mailer := NewFulfillmentMailerWithSender(testSMTP, sender)

	err := mailer.OrdersFulfilled(context.Background(), FulfillmentNotice{
		TeamName:   "Byte Me",
		Recipients: []string{"a@example.com", "b@example.com"},
		Lines:      []FulfilledLine{{ItemName: "Raspberry Pi", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, []string{"Hardware ready for Byte Me"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.GetHeader("Bcc"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Raspberry Pi")
}

func TestFulfillmentMailer_NoRecipientsIsNoop(t *testing.T) {
	sender := &captureSender{}
	err := NewFulfillmentMailerWithSender(testSMTP, sender).OrdersFulfilled(context.Background(), FulfillmentNotice{TeamName: "Empty"})
	require.NoError(t, err)
	assert.Empty(t, sender.messages)
}

func TestFulfillmentMailer_SendError(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	err := NewFulfillmentMailerWithSender(testSMTP, sender).OrdersFulfilled(context.Background(), FulfillmentNotice{
		TeamName:   "Byte Me",
		Recipients: []string{"a@example.com"},
	})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPConfigEnabled(t *testing.T) {
	assert.True(t, testSMTP.Enabled())
	assert.False(t, SMTPConfig{Host: "smtp.example.com"}.Enabled())
}

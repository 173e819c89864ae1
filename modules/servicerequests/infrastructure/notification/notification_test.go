package notification

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubmission() Submission {
	return Submission{
		Title:       "Payment Plan",
		RequestID:   "req-1",
		UserID:      "u1",
		UserName:    "Jane <Doe>",
		UserEmail:   "jane@example.com",
		Fields:      []Field{{Label: "Plan Type", Value: "weekly"}, {Label: "Amount", Value: "500"}},
		SubmittedAt: time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	msg, err := Render(sampleSubmission(), []string{"staff@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"staff@example.com"}, msg.To)
	assert.Equal(t, "New Payment Plan request from Jane <Doe>", msg.Subject)
	assert.Contains(t, msg.HTML, "Plan Type")
	assert.Contains(t, msg.HTML, "weekly")
	assert.Contains(t, msg.HTML, "Jane &lt;Doe&gt;")
	assert.Contains(t, msg.HTML, "01 Apr 2026 09:30 UTC")
	assert.Contains(t, msg.Text, "Amount: 500")
	assert.Contains(t, msg.Text, "Request: req-1")
}

func TestSubmission_SubjectForResubmission(t *testing.T) {
	t.Parallel()

	s := sampleSubmission()
	s.Resubmission = true
	assert.Equal(t, "Updated Payment Plan request from Jane <Doe>", s.Subject())
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.InfoLevel)
	sender := NewLogSender(logger)

	require.ErrorIs(t, sender.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipients)

	err := sender.Send(context.Background(), Message{To: []string{"a@example.com", "b@example.com"}, Subject: "hello", Text: "body"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "a@example.com,b@example.com")
	assert.Contains(t, buf.String(), "hello")
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	t.Parallel()

	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 2525, From: "no-reply@example.com"})
	m, err := s.buildMessage(Message{To: []string{"staff@example.com"}, Subject: "subj", Text: "text", HTML: "<p>html</p>"})
	require.NoError(t, err)
	require.NotNil(t, m)

	_, err = s.buildMessage(Message{To: []string{"not an address"}})
	require.Error(t, err)

	require.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipients)
}
